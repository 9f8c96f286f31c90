package config

import "testing"

func TestParseKeyValue_Quoted(t *testing.T) {
	k, err := parseKeyValue(`greeting = "hello world"`, 1)
	if err != nil {
		t.Fatal(err)
	}
	if k.key != "greeting" || k.value != "hello world" {
		t.Errorf("got %+v", k)
	}
}

func TestParseKeyValue_Unquoted(t *testing.T) {
	k, err := parseKeyValue("port = 6667", 1)
	if err != nil {
		t.Fatal(err)
	}
	if k.value != "6667" {
		t.Errorf("got %q", k.value)
	}
}

func TestParseKeyValue_List(t *testing.T) {
	k, err := parseKeyValue(`channels = ( "#a", "#b", "#c:key" )`, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(k.list) != 3 || k.list[2] != "#c:key" {
		t.Errorf("got %+v", k.list)
	}
}

func TestParseKeyValue_EmptyList(t *testing.T) {
	k, err := parseKeyValue("channels = ( )", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(k.list) != 0 {
		t.Errorf("expected empty list, got %+v", k.list)
	}
}

func TestParseKeyValue_Unterminated(t *testing.T) {
	if _, err := parseKeyValue(`x = "unterminated`, 1); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}

func TestParseSectionHeader(t *testing.T) {
	s, err := parseSectionHeader("[server.freenode]", 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.name != "server" || s.id != "freenode" {
		t.Errorf("got %+v", s)
	}
}

func TestParseSectionHeader_NoID(t *testing.T) {
	s, err := parseSectionHeader("[general]", 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.name != "general" || s.id != "" {
		t.Errorf("got %+v", s)
	}
}

func TestSection_GetAll_Appends(t *testing.T) {
	s := section{keys: []kv{
		{key: "channel", value: "#a"},
		{key: "channel", value: "#b"},
		{key: "other", value: "x"},
	}}
	got := s.getAll("channel")
	if len(got) != 2 || got[0] != "#a" || got[1] != "#b" {
		t.Errorf("got %+v", got)
	}
}

func TestSection_Get_LastWins(t *testing.T) {
	s := section{keys: []kv{
		{key: "nickname", value: "first"},
		{key: "nickname", value: "second"},
	}}
	v, ok := s.get("nickname")
	if !ok || v != "second" {
		t.Errorf("get() = %q, %v, want \"second\", true", v, ok)
	}
}

func TestSplitTopLevel_RespectsQuotes(t *testing.T) {
	got := splitTopLevel(`"a, b", "c"`, ',')
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
}
