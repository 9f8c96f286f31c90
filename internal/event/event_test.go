package event

import (
	"encoding/json"
	"testing"
)

func TestMarshalJoin(t *testing.T) {
	e := Join("freenode", "alice!a@host", "#staff")
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["event"] != "onJoin" || m["server"] != "freenode" || m["channel"] != "#staff" {
		t.Errorf("got %+v", m)
	}
	if m["origin"] != "alice!a@host" {
		t.Errorf("expected origin field, got %+v", m)
	}
}

func TestMarshalMessage(t *testing.T) {
	e := Message("freenode", "bob!b@host", "#staff", "hello")
	b, _ := json.Marshal(e)
	var m map[string]any
	json.Unmarshal(b, &m)
	if m["event"] != "onMessage" || m["message"] != "hello" {
		t.Errorf("got %+v", m)
	}
}

func TestMarshalCommand(t *testing.T) {
	e := Command("freenode", "logger", "bob!b@host", "#staff", "!logger status")
	b, _ := json.Marshal(e)
	var m map[string]any
	json.Unmarshal(b, &m)
	if m["event"] != "onCommand" || m["plugin"] != "logger" {
		t.Errorf("got %+v", m)
	}
}

func TestMarshalConnect_NoExtraFields(t *testing.T) {
	e := Connect("freenode")
	b, _ := json.Marshal(e)
	var m map[string]any
	json.Unmarshal(b, &m)
	if len(m) != 2 {
		t.Errorf("expected only event/server fields, got %+v", m)
	}
}
