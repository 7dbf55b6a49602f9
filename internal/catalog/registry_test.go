package catalog

import (
	"testing"

	"github.com/varejolabs/salesbot/internal/domain"
)

func TestRegistryCoversEveryQueryIntent(t *testing.T) {
	reg := Registry()
	for _, intent := range domain.QueryIntents() {
		if reg[intent] == nil {
			t.Errorf("no builder registered for %q", intent)
		}
	}
	if len(reg) != len(domain.QueryIntents()) {
		t.Errorf("registry has %d builders, domain declares %d query intents",
			len(reg), len(domain.QueryIntents()))
	}
	for intent := range reg {
		if intent == domain.IntentUnknown || intent == domain.IntentNeedsClarification {
			t.Errorf("control intent %q must never be dispatchable", intent)
		}
	}
}
