package env

import (
	"reflect"
	"testing"
	"time"
)

func TestStrAndInt(t *testing.T) {
	t.Setenv("GH_HOST", "  mosquitto ")
	t.Setenv("GH_PORT", "1884")
	t.Setenv("GH_BAD", "x")

	if got := Str("GH_HOST", "localhost"); got != "mosquitto" {
		t.Fatalf("Str = %q", got)
	}
	if got := Str("GH_MISSING", "localhost"); got != "localhost" {
		t.Fatalf("Str default = %q", got)
	}
	if got := Int("GH_PORT", 1883); got != 1884 {
		t.Fatalf("Int = %d", got)
	}
	if got := Int("GH_BAD", 1883); got != 1883 {
		t.Fatalf("Int invalid should fall back, got %d", got)
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		val  string
		want time.Duration
	}{
		{"5s", 5 * time.Second},
		{"250", 250 * time.Millisecond},
		{"nope", time.Minute},
		{"", time.Minute},
	}
	for _, tc := range cases {
		t.Setenv("GH_INTERVAL", tc.val)
		if got := Duration("GH_INTERVAL", time.Minute); got != tc.want {
			t.Fatalf("Duration(%q) = %s, want %s", tc.val, got, tc.want)
		}
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("GH_FLAG", "true")
	if !Bool("GH_FLAG", false) {
		t.Fatalf("Bool should be true")
	}
	t.Setenv("GH_TOPICS", "temperature/#, ,humidity/#")
	want := []string{"temperature/#", "humidity/#"}
	if got := List("GH_TOPICS", nil); !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	t.Setenv("GH_TOPICS", " , ")
	if got := List("GH_TOPICS", want); !reflect.DeepEqual(got, want) {
		t.Fatalf("List blank should fall back, got %v", got)
	}
}
