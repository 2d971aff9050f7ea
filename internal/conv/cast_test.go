package conv

import "testing"

func TestIntToUint32(t *testing.T) {
	if _, err := IntToUint32(-1); err == nil {
		t.Error("expected error for negative value")
	}

	got, err := IntToUint32(42)
	if err != nil {
		t.Fatalf("IntToUint32(42) failed: %v", err)
	}
	if got != 42 {
		t.Errorf("IntToUint32(42) = %d", got)
	}
}

func TestUint32ToInt(t *testing.T) {
	got, err := Uint32ToInt(7)
	if err != nil {
		t.Fatalf("Uint32ToInt(7) failed: %v", err)
	}
	if got != 7 {
		t.Errorf("Uint32ToInt(7) = %d", got)
	}
}
