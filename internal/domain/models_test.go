package domain

import (
	"errors"
	"testing"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{in: "SG", want: RegionSingapore},
		{in: "sg", want: RegionSingapore},
		{in: "Singapore", want: RegionSingapore},
		{in: "uae", want: RegionUAE},
		{in: "United Arab Emirates", want: RegionUAE},
		{in: "KSA", want: RegionSaudiArabia},
		{in: "uk", want: RegionUK},
		{in: "global", want: RegionGlobal},
		{in: "Global (WCO)", want: RegionGlobal},
		{in: "", wantErr: true},
		{in: "Atlantis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				if !IsType(err, ErrorTypeValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRegion(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestAllRegions_HaveDisplayNames(t *testing.T) {
	regions := AllRegions()
	if len(regions) != 10 {
		t.Fatalf("expected 10 regions, got %d", len(regions))
	}
	for _, r := range regions {
		if !r.Valid() {
			t.Errorf("region %s not valid", r)
		}
		if r.DisplayName() == string(r) {
			t.Errorf("region %s has no display name", r)
		}
	}
}

func TestSplitDataURI(t *testing.T) {
	mime, payload := SplitDataURI("data:image/png;base64,aGVsbG8=")
	if mime != "image/png" || payload != "aGVsbG8=" {
		t.Errorf("got (%q, %q)", mime, payload)
	}

	mime, payload = SplitDataURI("aGVsbG8=")
	if mime != "" || payload != "aGVsbG8=" {
		t.Errorf("bare payload changed: (%q, %q)", mime, payload)
	}
}

func TestImage_Decode(t *testing.T) {
	raw, mime, err := Image{Data: "data:image/webp;base64,aGVsbG8="}.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw) != "hello" || mime != "image/webp" {
		t.Errorf("got (%q, %q)", raw, mime)
	}

	_, mime, err = Image{Data: "aGVsbG8="}.Decode()
	if err != nil || mime != "image/jpeg" {
		t.Errorf("expected default jpeg, got %q (%v)", mime, err)
	}

	if _, _, err := (Image{Data: "!!!"}).Decode(); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestNewClassificationRequest(t *testing.T) {
	tests := []struct {
		name    string
		desc    string
		region  Region
		image   *Image
		wantErr bool
	}{
		{name: "description only", desc: "Wireless Bluetooth Headphones", region: RegionSingapore},
		{name: "image only", region: RegionUAE, image: &Image{Data: "aGVsbG8="}},
		{name: "nothing", region: RegionUAE, wantErr: true},
		{name: "blank image treated as absent", region: RegionUAE, image: &Image{Data: "  "}, wantErr: true},
		{name: "bad region", desc: "Laptop", region: Region("XX"), wantErr: true},
		{name: "bad image", desc: "Laptop", region: RegionUSA, image: &Image{Data: "%%%"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewClassificationRequest(tt.desc, tt.region, tt.image, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Region() != tt.region {
				t.Errorf("region = %s", req.Region())
			}
		})
	}
}

func TestClassificationRequest_ImageIsCopied(t *testing.T) {
	img := &Image{Data: "aGVsbG8="}
	req, err := NewClassificationRequest("x", RegionJapan, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	img.Data = "mutated"
	if req.Image().Data != "aGVsbG8=" {
		t.Error("request image changed after construction")
	}
}

func TestClassificationRequest_Status(t *testing.T) {
	var got []string
	req, err := NewClassificationRequest("x", RegionJapan, nil, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatal(err)
	}
	req.Status("one")
	req.Status("two")
	if len(got) != 2 || got[1] != "two" {
		t.Errorf("got %v", got)
	}

	silent, _ := NewClassificationRequest("x", RegionJapan, nil, nil)
	silent.Status("ignored")
}

func TestClampConfidence(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 55: 55, 100: 100, 140: 100}
	for in, want := range cases {
		if got := ClampConfidence(in); got != want {
			t.Errorf("ClampConfidence(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestIsType(t *testing.T) {
	inner := NoResponseError("empty")
	outer := InvocationError("call failed", inner)
	wrapped := &ClassificationError{Region: RegionIndia, Err: outer}

	if !IsType(wrapped, ErrorTypeInvocation) {
		t.Error("expected invocation type")
	}
	if !IsType(wrapped, ErrorTypeNoResponse) {
		t.Error("expected nested no_response type")
	}
	if IsType(wrapped, ErrorTypeStorage) {
		t.Error("unexpected storage type")
	}
	if !errors.Is(wrapped, ErrNoResponse) {
		t.Error("expected errors.Is to reach ErrNoResponse")
	}
}
