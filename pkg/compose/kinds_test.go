package compose

import (
	"encoding/json"
	"testing"
)

func TestInstanceType_Validate(t *testing.T) {
	tests := []struct {
		name    string
		value   InstanceType
		wantErr bool
	}{
		{name: "container", value: InstanceTypeContainer, wantErr: false},
		{name: "virtual machine", value: InstanceTypeVirtualMachine, wantErr: false},
		{name: "unknown", value: InstanceType("vm-ish"), wantErr: true},
		{name: "empty", value: InstanceType(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.value.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstanceType_IsVirtualMachine(t *testing.T) {
	if InstanceTypeContainer.IsVirtualMachine() {
		t.Error("container should not be a virtual machine")
	}
	if !InstanceTypeVirtualMachine.IsVirtualMachine() {
		t.Error("virtual-machine should be a virtual machine")
	}
}

func TestInstanceType_JSON(t *testing.T) {
	out, err := json.Marshal(InstanceTypeVirtualMachine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"virtual-machine"` {
		t.Errorf("unexpected marshal output: %s", out)
	}

	var parsed InstanceType
	if err := json.Unmarshal([]byte(`"container"`), &parsed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != InstanceTypeContainer {
		t.Errorf("expected container, got %s", parsed)
	}

	if err := json.Unmarshal([]byte(`"vm-ish"`), &parsed); err == nil {
		t.Error("expected error for unknown instance type")
	}
}

func TestEnumSets(t *testing.T) {
	if got := len(InstanceTypes()); got != 2 {
		t.Errorf("expected 2 instance types, got %d", got)
	}
	if got := len(NetworkTypes()); got != 5 {
		t.Errorf("expected 5 network types, got %d", got)
	}
	if got := len(StorageDrivers()); got != 5 {
		t.Errorf("expected 5 storage drivers, got %d", got)
	}
	if got := len(DeviceTypes()); got != 5 {
		t.Errorf("expected 5 device types, got %d", got)
	}
	if got := SupportedVersions(); len(got) != 1 || got[0] != SchemaVersion {
		t.Errorf("unexpected supported versions: %v", got)
	}
}

func TestNetworkType_Validate(t *testing.T) {
	for _, v := range NetworkTypes() {
		if err := NetworkType(v).Validate(); err != nil {
			t.Errorf("expected %s to be valid: %v", v, err)
		}
	}
	if err := NetworkType("mesh").Validate(); err == nil {
		t.Error("expected error for unknown network type")
	}
}

func TestStorageDriver_Validate(t *testing.T) {
	for _, v := range StorageDrivers() {
		if err := StorageDriver(v).Validate(); err != nil {
			t.Errorf("expected %s to be valid: %v", v, err)
		}
	}
	if err := StorageDriver("ext4").Validate(); err == nil {
		t.Error("expected error for unknown storage driver")
	}
}
