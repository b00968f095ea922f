package snapshot

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gpuasm/internal/errors"
)

func sample() *Snapshot {
	return &Snapshot{
		Instructions: []Instruction{
			{
				Name:               "s_branch",
				Architectures:      []string{"rdna3", "rdna35"},
				Description:        "Unconditional branch.",
				Args:               []string{"label"},
				ArgTypes:           []string{"label"},
				ArgDataTypes:       []string{"unknown"},
				AvailableEncodings: []string{"ENC_SOPP"},
			},
			{
				Name:               "v_add_f32",
				Architectures:      []string{"rdna3"},
				Description:        "Add two floats.",
				Args:               []string{"vdst", "src0"},
				ArgTypes:           []string{"register", "register"},
				ArgDataTypes:       []string{"FMT_NUM_F32", "FMT_NUM_F32"},
				AvailableEncodings: []string{"ENC_VOP2", "ENC_VOP3"},
			},
		},
		SpecialRegisters: SpecialRegisters{
			Singles: []Single{
				{Name: "exec", Description: "Wavefront execution mask (64-bit). Each bit enables a lane."},
			},
			Ranges: []Range{
				{
					Prefix:      "attr",
					Start:       0,
					Count:       32,
					Description: "Attribute register.",
					Overrides:   []Override{{Index: 7, Description: "Attribute register 7, reserved."}},
				},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		minify bool
	}{
		{"pretty", "isa.json", false},
		{"minified", "isa.min.json", true},
		{"compressed", "isa.json.zst", false},
		{"compressed minified", "isa.min.json.zst", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			want := sample()

			if err := Write(path, want, tt.minify); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestWrite_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "isa.json")
	if err := Write(path, sample(), false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestMarshal_MinifyIsSmaller(t *testing.T) {
	s := sample()
	pretty, err := Marshal(s, false)
	if err != nil {
		t.Fatal(err)
	}
	minified, err := Marshal(s, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(minified) >= len(pretty) {
		t.Errorf("minified (%d bytes) should be smaller than pretty (%d bytes)", len(minified), len(pretty))
	}
	for _, data := range [][]byte{pretty, minified} {
		if data[len(data)-1] != '\n' {
			t.Error("serialized snapshot should end with a newline")
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected an error for a missing snapshot")
	}
	if code := errors.CodeOf(err); code != errors.DataLoad {
		t.Errorf("error code = %v, want %v", code, errors.DataLoad)
	}
}

func TestParse_BadJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"), "isa.json")
	if err == nil {
		t.Fatal("expected an error for undecodable payload")
	}
	if code := errors.CodeOf(err); code != errors.DataLoad {
		t.Errorf("error code = %v, want %v", code, errors.DataLoad)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(s *Snapshot) {},
			wantErr: "",
		},
		{
			name: "empty instruction name",
			mutate: func(s *Snapshot) {
				s.Instructions[0].Name = ""
			},
			wantErr: "empty name",
		},
		{
			name: "duplicate instruction name",
			mutate: func(s *Snapshot) {
				s.Instructions[1].Name = s.Instructions[0].Name
			},
			wantErr: "duplicate instruction name",
		},
		{
			name: "misaligned columns",
			mutate: func(s *Snapshot) {
				s.Instructions[0].ArgTypes = append(s.Instructions[0].ArgTypes, "register")
			},
			wantErr: "misaligned",
		},
		{
			name: "empty single description",
			mutate: func(s *Snapshot) {
				s.SpecialRegisters.Singles[0].Description = ""
			},
			wantErr: "empty description",
		},
		{
			name: "undersized range",
			mutate: func(s *Snapshot) {
				s.SpecialRegisters.Ranges[0].Count = 2
			},
			wantErr: "below minimum",
		},
		{
			name: "override outside range",
			mutate: func(s *Snapshot) {
				s.SpecialRegisters.Ranges[0].Overrides[0].Index = 32
			},
			wantErr: "outside",
		},
		{
			name: "duplicate override index",
			mutate: func(s *Snapshot) {
				o := s.SpecialRegisters.Ranges[0].Overrides[0]
				s.SpecialRegisters.Ranges[0].Overrides = []Override{o, o}
			},
			wantErr: "duplicate override",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sample()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_ValidationFailureIsDataLoad(t *testing.T) {
	s := sample()
	s.Instructions[1].Name = s.Instructions[0].Name
	data, err := Marshal(s, false)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Parse(data, "isa.json")
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if code := errors.CodeOf(err); code != errors.DataLoad {
		t.Errorf("error code = %v, want %v", code, errors.DataLoad)
	}
}

func TestStats(t *testing.T) {
	got := sample().Stats()
	want := Stats{Instructions: 2, Architectures: 2, Singles: 1, Ranges: 1}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestArchitectureTags(t *testing.T) {
	got := sample().ArchitectureTags()
	want := []string{"rdna3", "rdna35"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ArchitectureTags() = %v, want %v", got, want)
	}
}

func TestIsCompressed(t *testing.T) {
	if !IsCompressed("data/isa.json.zst") {
		t.Error("expected .zst to be detected as compressed")
	}
	if !IsCompressed("DATA/ISA.JSON.ZST") {
		t.Error("extension check should be case-insensitive")
	}
	if IsCompressed("data/isa.json") {
		t.Error("plain .json should not be detected as compressed")
	}
}
