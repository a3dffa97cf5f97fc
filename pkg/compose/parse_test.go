package compose

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const fullDocument = `
version: "1.0"
containers:
  web:
    instance_type: container
    image: ubuntu/22.04
    description: "frontend"
    cpu:
      limit: "2"
      allowance: "50%"
      priority: 5
    memory:
      limit: "2GiB"
      swap: "false"
    networks:
      - frontend
    volumes:
      - source: /srv/web
        target: /var/www
        readonly: true
    devices:
      data:
        type: disk
        source: /srv/data
        path: /data
    config:
      security.nesting: "true"
    environment:
      APP_ENV: production
    autostart: true
    boot_priority: 10
    depends_on:
      - db
    profiles:
      - base
  db:
    instance_type: virtual-machine
    image: ubuntu/22.04
    image_server: "local:"
    autostart: false
networks:
  frontend:
    type: bridge
    config:
      ipv4.address: "10.10.10.1/24"
storage:
  fast:
    driver: zfs
profiles:
  base:
    description: "shared settings"
    config:
      limits.processes: "1000"
`

func TestParse_FullDocument(t *testing.T) {
	doc, err := Parse([]byte(fullDocument))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Version != "1.0" {
		t.Errorf("expected version 1.0, got %s", doc.Version)
	}
	if len(doc.Containers) != 2 {
		t.Fatalf("expected 2 containers, got %d", len(doc.Containers))
	}

	web := doc.Containers["web"]
	if web.Name != "web" {
		t.Errorf("expected name web, got %s", web.Name)
	}
	if web.InstanceType != InstanceTypeContainer {
		t.Errorf("expected container instance type, got %s", web.InstanceType)
	}
	if web.ImageServer != DefaultImageServer {
		t.Errorf("expected default image server, got %s", web.ImageServer)
	}
	if web.CPU == nil || web.CPU.Limit != "2" || web.CPU.Allowance != "50%" {
		t.Errorf("unexpected cpu limits: %+v", web.CPU)
	}
	if web.CPU.Priority == nil || *web.CPU.Priority != 5 {
		t.Errorf("unexpected cpu priority: %v", web.CPU.Priority)
	}
	if web.Memory == nil || web.Memory.Limit != "2GiB" || web.Memory.Swap != "false" {
		t.Errorf("unexpected memory limits: %+v", web.Memory)
	}
	if len(web.Volumes) != 1 || !web.Volumes[0].Readonly {
		t.Errorf("unexpected volumes: %+v", web.Volumes)
	}
	if web.BootPriority != 10 {
		t.Errorf("expected boot_priority 10, got %d", web.BootPriority)
	}
	if !reflect.DeepEqual(web.DependsOn, []string{"db"}) {
		t.Errorf("unexpected depends_on: %v", web.DependsOn)
	}
	disk, ok := web.Devices["data"].(DiskDevice)
	if !ok {
		t.Fatalf("expected disk device, got %T", web.Devices["data"])
	}
	if disk.Source != "/srv/data" || disk.Path != "/data" {
		t.Errorf("unexpected disk device: %+v", disk)
	}

	db := doc.Containers["db"]
	if !db.InstanceType.IsVirtualMachine() {
		t.Errorf("expected virtual machine, got %s", db.InstanceType)
	}
	if db.ImageServer != "local:" {
		t.Errorf("expected local: image server, got %s", db.ImageServer)
	}
	if db.Autostart {
		t.Error("expected autostart false")
	}

	if doc.Networks["frontend"].Type != NetworkTypeBridge {
		t.Errorf("unexpected network type: %s", doc.Networks["frontend"].Type)
	}
	if doc.Storage["fast"].Driver != StorageDriverZfs {
		t.Errorf("unexpected storage driver: %s", doc.Storage["fast"].Driver)
	}
	if doc.Profiles["base"].Config["limits.processes"] != "1000" {
		t.Errorf("unexpected profile config: %+v", doc.Profiles["base"].Config)
	}
}

func TestParse_Defaults(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
containers:
  plain:
    image: alpine/3.19
    volumes:
      - source: /a
        target: /b
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := doc.Containers["plain"]
	if c.InstanceType != InstanceTypeContainer {
		t.Errorf("expected default instance_type container, got %s", c.InstanceType)
	}
	if !c.Autostart {
		t.Error("expected default autostart true")
	}
	if c.BootPriority != 0 {
		t.Errorf("expected default boot_priority 0, got %d", c.BootPriority)
	}
	if c.ImageServer != "images:" {
		t.Errorf("expected default image server images:, got %s", c.ImageServer)
	}
	if c.Volumes[0].Readonly {
		t.Error("expected default readonly false")
	}
}

func TestParse_BoolSpellings(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    autostart: True
    volumes:
      - source: /srv/data
        target: /data
        readonly: TRUE
    devices:
      root:
        type: disk
        source: /srv/root
        path: /
        readonly: True
  batch:
    image: ubuntu/22.04
    autostart: FALSE
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	web := doc.Containers["web"]
	if !web.Autostart {
		t.Error("expected autostart True to decode true")
	}
	if !web.Volumes[0].Readonly {
		t.Error("expected volume readonly TRUE to decode true")
	}
	disk, ok := web.Devices["root"].(DiskDevice)
	if !ok {
		t.Fatalf("expected disk device, got %T", web.Devices["root"])
	}
	if !disk.Readonly {
		t.Error("expected device readonly True to decode true")
	}
	if doc.Containers["batch"].Autostart {
		t.Error("expected autostart FALSE to decode false")
	}
}

func TestParse_IntegerForms(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    boot_priority: 0x10
  batch:
    image: ubuntu/22.04
    boot_priority: 1_000
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := doc.Containers["web"].BootPriority; got != 16 {
		t.Errorf("expected boot_priority 0x10 to decode 16, got %d", got)
	}
	if got := doc.Containers["batch"].BootPriority; got != 1000 {
		t.Errorf("expected boot_priority 1_000 to decode 1000, got %d", got)
	}

	_, err = Parse([]byte(`
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    boot_priority: 18446744073709551615
`))
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if mismatch.FieldPath != "containers.web.boot_priority" {
		t.Errorf("unexpected field path %s", mismatch.FieldPath)
	}
	if mismatch.Actual != "18446744073709551615" {
		t.Errorf("expected actual to carry the scalar text, got %s", mismatch.Actual)
	}
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantPath  string
		checkFunc func(*testing.T, error)
	}{
		{
			name:     "missing version",
			content:  "containers:\n  web:\n    image: ubuntu/22.04\n",
			wantPath: "version",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "empty document",
			content:  "",
			wantPath: "version",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "unsupported version",
			content:  "version: \"2.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n",
			wantPath: "version",
			checkFunc: func(t *testing.T, err error) {
				var unsupported *UnsupportedVersionError
				if !errors.As(err, &unsupported) {
					t.Fatalf("expected UnsupportedVersionError, got %T", err)
				}
				if unsupported.Found != "2.0" {
					t.Errorf("expected found 2.0, got %s", unsupported.Found)
				}
				if !reflect.DeepEqual(unsupported.Supported, []string{"1.0"}) {
					t.Errorf("unexpected supported set: %v", unsupported.Supported)
				}
			},
		},
		{
			name:     "missing containers",
			content:  "version: \"1.0\"\n",
			wantPath: "containers",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "empty containers mapping",
			content:  "version: \"1.0\"\ncontainers: {}\n",
			wantPath: "containers",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "missing image",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    autostart: true\n",
			wantPath: "containers.web.image",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "unknown instance type",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    instance_type: vm-ish\n",
			wantPath: "containers.web.instance_type",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownVariantError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownVariantError, got %T", err)
				}
				if unknown.Value != "vm-ish" {
					t.Errorf("expected value vm-ish, got %s", unknown.Value)
				}
				if !reflect.DeepEqual(unknown.Allowed, []string{"container", "virtual-machine"}) {
					t.Errorf("unexpected allowed set: %v", unknown.Allowed)
				}
			},
		},
		{
			name:     "cpu limit given as a list",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    cpu:\n      limit: [2]\n",
			wantPath: "containers.web.cpu.limit",
			checkFunc: func(t *testing.T, err error) {
				var mismatch *TypeMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("expected TypeMismatchError, got %T", err)
				}
				if mismatch.Expected != "string" || mismatch.Actual != "sequence" {
					t.Errorf("expected string/sequence, got %s/%s", mismatch.Expected, mismatch.Actual)
				}
				if line, col := mismatch.Position(); line == 0 || col == 0 {
					t.Errorf("expected a source position, got %d:%d", line, col)
				}
			},
		},
		{
			name:     "autostart given as a string",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    autostart: \"yes\"\n",
			wantPath: "containers.web.autostart",
			checkFunc: func(t *testing.T, err error) {
				var mismatch *TypeMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("expected TypeMismatchError, got %T", err)
				}
				if mismatch.Expected != "boolean" {
					t.Errorf("expected boolean, got %s", mismatch.Expected)
				}
			},
		},
		{
			name:     "unknown container field",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    imagee: typo\n",
			wantPath: "containers.web",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownFieldError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownFieldError, got %T", err)
				}
				if unknown.Field != "imagee" {
					t.Errorf("expected field imagee, got %s", unknown.Field)
				}
			},
		},
		{
			name:     "unknown top-level field",
			content:  "version: \"1.0\"\nservices:\n  web: {}\ncontainers:\n  web:\n    image: ubuntu/22.04\n",
			wantPath: "",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownFieldError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownFieldError, got %T", err)
				}
				if unknown.Field != "services" {
					t.Errorf("expected field services, got %s", unknown.Field)
				}
			},
		},
		{
			name:     "duplicate field",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    image: alpine/3.19\n",
			wantPath: "containers.web",
			checkFunc: func(t *testing.T, err error) {
				var dup *DuplicateFieldError
				if !errors.As(err, &dup) {
					t.Fatalf("expected DuplicateFieldError, got %T", err)
				}
				if dup.Field != "image" {
					t.Errorf("expected field image, got %s", dup.Field)
				}
			},
		},
		{
			name:     "missing memory limit",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    memory:\n      swap: \"false\"\n",
			wantPath: "containers.web.memory.limit",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "missing volume target",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    volumes:\n      - source: /a\n",
			wantPath: "containers.web.volumes[0].target",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "unknown device type",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    devices:\n      weird:\n        type: tpu\n",
			wantPath: "containers.web.devices.weird.type",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownVariantError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownVariantError, got %T", err)
				}
				if len(unknown.Allowed) != 5 {
					t.Errorf("expected 5 allowed device types, got %v", unknown.Allowed)
				}
			},
		},
		{
			name:     "missing device type",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    devices:\n      data:\n        source: /srv\n",
			wantPath: "containers.web.devices.data.type",
			checkFunc: func(t *testing.T, err error) {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %T", err)
				}
			},
		},
		{
			name:     "disk device with nic field",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    devices:\n      data:\n        type: disk\n        network: frontend\n",
			wantPath: "containers.web.devices.data",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownFieldError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownFieldError, got %T", err)
				}
				if unknown.Field != "network" {
					t.Errorf("expected field network, got %s", unknown.Field)
				}
			},
		},
		{
			name:     "unknown network type",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\nnetworks:\n  lan:\n    type: mesh\n",
			wantPath: "networks.lan.type",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownVariantError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownVariantError, got %T", err)
				}
			},
		},
		{
			name:     "unknown storage driver",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\nstorage:\n  fast:\n    driver: ext4\n",
			wantPath: "storage.fast.driver",
			checkFunc: func(t *testing.T, err error) {
				var unknown *UnknownVariantError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownVariantError, got %T", err)
				}
			},
		},
		{
			name:     "config value not a string",
			content:  "version: \"1.0\"\ncontainers:\n  web:\n    image: ubuntu/22.04\n    config:\n      security.nesting: true\n",
			wantPath: "containers.web.config.security.nesting",
			checkFunc: func(t *testing.T, err error) {
				var mismatch *TypeMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("expected TypeMismatchError, got %T", err)
				}
				if mismatch.Actual != "boolean" {
					t.Errorf("expected actual boolean, got %s", mismatch.Actual)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !IsParseError(err) {
				t.Fatalf("expected a structural parse error, got %v", err)
			}
			var perr ParseError
			errors.As(err, &perr)
			if perr.Path() != tt.wantPath {
				t.Errorf("expected path %q, got %q", tt.wantPath, perr.Path())
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, err)
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("version: \"1.0\"\n  containers: bad indent\n"))
	if err == nil {
		t.Fatal("expected error, got none")
	}
	if IsParseError(err) {
		t.Errorf("syntax errors should not be structural errors, got %v", err)
	}
}

func TestParse_NullFieldsAreAbsent(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    description:
    autostart:
    memory:
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := doc.Containers["web"]
	if c.Description != "" {
		t.Errorf("expected empty description, got %q", c.Description)
	}
	if !c.Autostart {
		t.Error("null autostart should keep the default")
	}
	if c.Memory != nil {
		t.Errorf("expected nil memory, got %+v", c.Memory)
	}
}

func TestParse_Anchors(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
containers:
  web: &base
    image: ubuntu/22.04
  db: *base
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Containers["db"].Image != "ubuntu/22.04" {
		t.Errorf("alias not resolved: %+v", doc.Containers["db"])
	}
	if doc.Containers["db"].Name != "db" {
		t.Errorf("expected name db, got %s", doc.Containers["db"].Name)
	}
}

func TestParse_IncompleteDeviceIsNotStructural(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    devices:
      data:
        type: disk
        source: /srv
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := doc.Containers["web"].Devices["data"]
	if !reflect.DeepEqual(d.MissingFields(), []string{"path"}) {
		t.Errorf("expected missing path, got %v", d.MissingFields())
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	doc, err := Parse([]byte(fullDocument))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	out, err := Marshal(doc)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse failed: %v\n%s", err, out)
	}
	if !reflect.DeepEqual(doc, reparsed) {
		t.Errorf("round-trip mismatch\nfirst:  %+v\nsecond: %+v", doc, reparsed)
	}

	// Defaults must be written out explicitly.
	text := string(out)
	if !strings.Contains(text, "instance_type: container") {
		t.Error("expected explicit instance_type in output")
	}
	if !strings.Contains(text, "autostart: false") {
		t.Error("expected explicit autostart false in output")
	}
}

func TestLoad_SelectsFrontEndByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "incus-compose.yaml")
	if err := os.WriteFile(yamlPath, []byte(fullDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Containers) != 2 {
		t.Errorf("expected 2 containers, got %d", len(doc.Containers))
	}

	if _, err := Load(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFrontEnds_ProduceIdenticalDocuments(t *testing.T) {
	yamlDoc := `
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    networks:
      - frontend
    depends_on:
      - db
    boot_priority: 5
  db:
    image: ubuntu/22.04
    autostart: false
networks:
  frontend:
    type: bridge
    config:
      ipv4.nat: "true"
`
	cueDoc := `
version: "1.0"
containers: {
	web: {
		image: "ubuntu/22.04"
		networks: ["frontend"]
		depends_on: ["db"]
		boot_priority: 5
	}
	db: {
		image: "ubuntu/22.04"
		autostart: false
	}
}
networks: {
	frontend: {
		type: "bridge"
		config: {"ipv4.nat": "true"}
	}
}
`
	starDoc := `
compose = {
    "version": "1.0",
    "containers": {
        "web": {
            "image": "ubuntu/22.04",
            "networks": ["frontend"],
            "depends_on": ["db"],
            "boot_priority": 5,
        },
        "db": {
            "image": "ubuntu/22.04",
            "autostart": False,
        },
    },
    "networks": {
        "frontend": {
            "type": "bridge",
            "config": {"ipv4.nat": "true"},
        },
    },
}
`

	fromYAML, err := Parse([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("yaml parse failed: %v", err)
	}
	fromCUE, err := ParseCUE("compose.cue", []byte(cueDoc))
	if err != nil {
		t.Fatalf("cue parse failed: %v", err)
	}
	fromStar, err := ParseStarlark("compose.star", []byte(starDoc))
	if err != nil {
		t.Fatalf("starlark parse failed: %v", err)
	}

	if !reflect.DeepEqual(fromYAML, fromCUE) {
		t.Errorf("cue document differs from yaml\nyaml: %+v\ncue:  %+v", fromYAML, fromCUE)
	}
	if !reflect.DeepEqual(fromYAML, fromStar) {
		t.Errorf("starlark document differs from yaml\nyaml: %+v\nstar: %+v", fromYAML, fromStar)
	}
}
