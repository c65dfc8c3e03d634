package users

import (
	"os"
	"testing"
)

func TestStartCoinsDefault(t *testing.T) {
	os.Unsetenv("START_COINS")
	if got := StartCoins(); got != 150 {
		t.Errorf("StartCoins = %d, want 150", got)
	}
}

func TestStartCoinsFromEnv(t *testing.T) {
	t.Setenv("START_COINS", "500")
	if got := StartCoins(); got != 500 {
		t.Errorf("StartCoins = %d, want 500", got)
	}
}

func TestStartCoinsRejectsNegative(t *testing.T) {
	t.Setenv("START_COINS", "-10")
	if got := StartCoins(); got != 150 {
		t.Errorf("StartCoins = %d, want default 150 for negative env", got)
	}
}
