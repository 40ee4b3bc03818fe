package httpapi

import (
	"testing"
	"time"

	"vllmpoc/internal/chat"
	"vllmpoc/internal/engine"
)

func TestOptions_DefaultsWhenNonPositive(t *testing.T) {
	for _, n := range []int64{-1, 0} {
		o := Options{MaxBodyBytes: n}.withDefaults()
		if o.MaxBodyBytes != 1<<20 {
			t.Fatalf("MaxBodyBytes(%d): expected default 1MiB, got %d", n, o.MaxBodyBytes)
		}
	}
	o := Options{MaxBodyBytes: 1234}.withDefaults()
	if o.MaxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", o.MaxBodyBytes)
	}
}

func TestOptions_NormalizesNegativeTimeout(t *testing.T) {
	if o := (Options{GenerationTimeout: -time.Second}).withDefaults(); o.GenerationTimeout != 0 {
		t.Fatalf("expected 0, got %v", o.GenerationTimeout)
	}
	if o := (Options{GenerationTimeout: 3 * time.Second}).withDefaults(); o.GenerationTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %v", o.GenerationTimeout)
	}
}

func TestOptions_FillsServiceAndContext(t *testing.T) {
	o := Options{Engines: &engine.Handle{}}.withDefaults()
	if _, ok := o.Chat.(*chat.Service); !ok {
		t.Fatalf("expected *chat.Service, got %T", o.Chat)
	}
	if o.BaseContext == nil || o.BaseContext.Err() != nil {
		t.Fatalf("expected a live background context")
	}
	if o.Version != "dev" {
		t.Fatalf("version=%q", o.Version)
	}
	if o := (Options{}).withDefaults(); o.Chat != nil {
		t.Fatalf("no engine source must leave Chat nil, got %T", o.Chat)
	}
}
