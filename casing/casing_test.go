package casing

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	cases := []struct {
		key   string
		style Style
		want  string
	}{
		{"user_id", Camel, "userId"},
		{"UserId", Snake, "user_id"},
		{"user-id", Pascal, "UserId"},
		{"userId", Kebab, "user-id"},
		{"created at", Snake, "created_at"},
		{"HTTPServer", Snake, "http_server"},
		{"parseHTTPResponse", Kebab, "parse-http-response"},
		{"already_snake", Snake, "already_snake"},
		{"", Camel, ""},
		{"___", Snake, "___"},
		{"x", Pascal, "X"},
	}
	for _, tc := range cases {
		if got := Key(tc.key, tc.style); got != tc.want {
			t.Fatalf("Key(%q, %s): expected %q, got %q", tc.key, tc.style, tc.want, got)
		}
	}
}

func TestKey_NoneIsIdentity(t *testing.T) {
	for _, key := range []string{"user_id", "UserId", "HTTP-server", "", "weird  key"} {
		if got := Key(key, None); got != key {
			t.Fatalf("expected identity for %q, got %q", key, got)
		}
	}
}

func TestParseStyle(t *testing.T) {
	valid := map[string]Style{
		"":           None,
		"none":       None,
		"camel":      Camel,
		"camelCase":  Camel,
		"snake_case": Snake,
		"kebab-case": Kebab,
		"PascalCase": Pascal,
	}
	for input, want := range valid {
		got, err := ParseStyle(input)
		if err != nil || got != want {
			t.Fatalf("ParseStyle(%q): expected %s, got %s (%v)", input, want, got, err)
		}
	}

	if _, err := ParseStyle("SCREAMING_SNAKE"); err == nil {
		t.Fatalf("expected error for unknown style")
	}
}

func TestTransform_Nested(t *testing.T) {
	input := map[string]any{
		"user_name": "ada",
		"nested_obj": map[string]any{
			"inner_key": 1,
		},
		"item_list": []any{
			map[string]any{"list_key": true},
			"scalar",
		},
	}

	out, ok := Transform(input, Camel).(map[string]any)
	if !ok {
		t.Fatalf("expected mapping result")
	}
	if out["userName"] != "ada" {
		t.Fatalf("expected top-level key rewritten, got %v", out)
	}
	nested, ok := out["nestedObj"].(map[string]any)
	if !ok || nested["innerKey"] != 1 {
		t.Fatalf("expected nested keys rewritten, got %v", out["nestedObj"])
	}
	list, ok := out["itemList"].([]any)
	if !ok {
		t.Fatalf("expected sequence preserved, got %v", out["itemList"])
	}
	element, ok := list[0].(map[string]any)
	if !ok || element["listKey"] != true {
		t.Fatalf("expected element keys rewritten, got %v", list[0])
	}
	if list[1] != "scalar" {
		t.Fatalf("expected scalar preserved, got %v", list[1])
	}

	// Input must be untouched.
	if _, present := input["userName"]; present {
		t.Fatalf("expected input left unchanged")
	}
}

func TestTransform_OpaqueValuesPassThrough(t *testing.T) {
	now := time.Now()
	fn := func() {}
	type record struct{ FieldName string }

	input := map[string]any{
		"created_at": now,
		"call_back":  fn,
		"struct_val": record{FieldName: "x"},
	}

	out := Transform(input, Camel).(map[string]any)
	if out["createdAt"] != now {
		t.Fatalf("expected time passed through")
	}
	if out["callBack"] == nil {
		t.Fatalf("expected func passed through")
	}
	if rec, ok := out["structVal"].(record); !ok || rec.FieldName != "x" {
		t.Fatalf("expected struct passed through unchanged, got %v", out["structVal"])
	}
}

func TestTransform_CyclePreserved(t *testing.T) {
	cyclic := map[string]any{"some_key": "value"}
	cyclic["self_ref"] = cyclic

	done := make(chan map[string]any, 1)
	go func() {
		done <- Transform(cyclic, Snake).(map[string]any)
	}()

	select {
	case out := <-done:
		// The in-progress reference is returned unchanged, so the cycle
		// points back at the original mapping.
		self, ok := out["self_ref"].(map[string]any)
		if !ok {
			t.Fatalf("expected cyclic reference preserved, got %T", out["self_ref"])
		}
		if self["some_key"] != "value" {
			t.Fatalf("expected original branch reachable through the cycle")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("transform looped on cyclic input")
	}
}

func TestTransform_NoneReturnsSameValue(t *testing.T) {
	input := map[string]any{"a_b": 1}
	out, ok := Transform(input, None).(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type")
	}
	if out["a_b"] != 1 {
		t.Fatalf("expected identical content")
	}
}

func TestTransform_SharedNonCyclicReference(t *testing.T) {
	shared := map[string]any{"shared_key": 1}
	input := map[string]any{"first_ref": shared, "second_ref": shared}

	out := Transform(input, Camel).(map[string]any)
	first := out["firstRef"].(map[string]any)
	second := out["secondRef"].(map[string]any)
	if first["sharedKey"] != 1 || second["sharedKey"] != 1 {
		t.Fatalf("expected both shared references normalized, got %v", out)
	}
}
