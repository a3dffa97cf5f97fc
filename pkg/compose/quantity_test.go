package compose

import "testing"

func TestParseMemoryQuantity(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantBytes   int64
		wantPercent int
		wantErr     bool
	}{
		{name: "gibibytes", raw: "2GiB", wantBytes: 2 * 1024 * 1024 * 1024},
		{name: "ram-style gigabytes", raw: "2GB", wantBytes: 2 * 1024 * 1024 * 1024},
		{name: "mebibytes", raw: "512MiB", wantBytes: 512 * 1024 * 1024},
		{name: "plain bytes", raw: "1048576", wantBytes: 1048576},
		{name: "percentage", raw: "50%", wantPercent: 50},
		{name: "full percentage", raw: "100%", wantPercent: 100},
		{name: "zero", raw: "0", wantErr: true},
		{name: "zero percent", raw: "0%", wantErr: true},
		{name: "over hundred percent", raw: "150%", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseMemoryQuantity(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got none", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Bytes != tt.wantBytes {
				t.Errorf("expected %d bytes, got %d", tt.wantBytes, q.Bytes)
			}
			if q.Percent != tt.wantPercent {
				t.Errorf("expected %d percent, got %d", tt.wantPercent, q.Percent)
			}
		})
	}
}

func TestValidateCPULimit(t *testing.T) {
	valid := []string{"1", "2", "16", "1-3", "0-7", "0,2,4", "0,2,4-7"}
	for _, v := range valid {
		if err := ValidateCPULimit(v); err != nil {
			t.Errorf("expected %q to be valid: %v", v, err)
		}
	}

	invalid := []string{"", "0", "-1", "two", "3-1", "1,2,x", "1-", "-3"}
	for _, v := range invalid {
		if err := ValidateCPULimit(v); err == nil {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestValidateCPUAllowance(t *testing.T) {
	valid := []string{"50%", "1%", "100%", "25ms/100ms", "100ms/100ms"}
	for _, v := range valid {
		if err := ValidateCPUAllowance(v); err != nil {
			t.Errorf("expected %q to be valid: %v", v, err)
		}
	}

	invalid := []string{"", "0%", "101%", "25/100", "150ms/100ms", "abc", "25ms"}
	for _, v := range invalid {
		if err := ValidateCPUAllowance(v); err == nil {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestValidateMemorySwap(t *testing.T) {
	valid := []string{"true", "false", "1GB", "50%"}
	for _, v := range valid {
		if err := ValidateMemorySwap(v); err != nil {
			t.Errorf("expected %q to be valid: %v", v, err)
		}
	}

	invalid := []string{"", "maybe", "0"}
	for _, v := range invalid {
		if err := ValidateMemorySwap(v); err == nil {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}
