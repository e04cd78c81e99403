package config

import "testing"

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load("does-not-exist.yml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.USB.VendorID != 0x04E8 {
		t.Errorf("want vendor id 0x04E8, got 0x%X", c.USB.VendorID)
	}
	if len(c.USB.ProductID) != 3 {
		t.Errorf("want 3 default product ids, got %d", len(c.USB.ProductID))
	}
	if c.TCP.ListenPort != 13579 {
		t.Errorf("want listen port 13579, got %d", c.TCP.ListenPort)
	}
	if c.TimeoutSeconds != 30 {
		t.Errorf("want 30s default timeout, got %d", c.TimeoutSeconds)
	}
}
