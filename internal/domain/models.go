package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Region is a customs jurisdiction supported by the classifier.
type Region string

const (
	RegionSingapore   Region = "SG"
	RegionUAE         Region = "AE"
	RegionSaudiArabia Region = "SA"
	RegionUSA         Region = "US"
	RegionEU          Region = "EU"
	RegionUK          Region = "GB"
	RegionChina       Region = "CN"
	RegionIndia       Region = "IN"
	RegionJapan       Region = "JP"
	RegionGlobal      Region = "GLOBAL"
)

var regionNames = map[Region]string{
	RegionSingapore:   "Singapore",
	RegionUAE:         "United Arab Emirates",
	RegionSaudiArabia: "Saudi Arabia",
	RegionUSA:         "United States",
	RegionEU:          "European Union",
	RegionUK:          "United Kingdom",
	RegionChina:       "China",
	RegionIndia:       "India",
	RegionJapan:       "Japan",
	RegionGlobal:      "Global (WCO)",
}

// Common aliases accepted by ParseRegion in addition to codes and display names.
var regionAliases = map[string]Region{
	"UAE":    RegionUAE,
	"KSA":    RegionSaudiArabia,
	"USA":    RegionUSA,
	"UK":     RegionUK,
	"WORLD":  RegionGlobal,
	"GLOBAL": RegionGlobal,
	"WCO":    RegionGlobal,
}

// AllRegions returns every supported region in a fixed order.
func AllRegions() []Region {
	return []Region{
		RegionSingapore,
		RegionUAE,
		RegionSaudiArabia,
		RegionUSA,
		RegionEU,
		RegionUK,
		RegionChina,
		RegionIndia,
		RegionJapan,
		RegionGlobal,
	}
}

// DisplayName returns the human-readable jurisdiction name.
func (r Region) DisplayName() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return string(r)
}

// Valid reports whether r is one of the supported regions.
func (r Region) Valid() bool {
	_, ok := regionNames[r]
	return ok
}

// ParseRegion resolves a region code, alias or display name (case-insensitive).
func ParseRegion(s string) (Region, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return "", ValidationError("region is required", nil)
	}
	if r := Region(key); r.Valid() {
		return r, nil
	}
	if r, ok := regionAliases[key]; ok {
		return r, nil
	}
	for r, name := range regionNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("unsupported region %q", s), nil)
}

// Source records where the classification was grounded.
type Source string

const (
	SourceLiveAPI Source = "Live API"
	SourceAIModel Source = "AI Model"
)

// StatusFunc receives human-readable progress labels during a classification.
type StatusFunc func(status string)

// Image is a product photo. Data is base64 and may carry a data-URI prefix.
type Image struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// SplitDataURI strips a "data:<mime>;base64," prefix, returning the MIME type
// found in the prefix (empty if none) and the bare base64 payload.
func SplitDataURI(data string) (mimeType, payload string) {
	if !strings.HasPrefix(data, "data:") {
		return "", data
	}
	comma := strings.IndexByte(data, ',')
	if comma < 0 {
		return "", data
	}
	header := data[len("data:"):comma]
	mimeType, _, _ = strings.Cut(header, ";")
	return mimeType, data[comma+1:]
}

// Decode returns the raw image bytes and the effective MIME type.
func (i Image) Decode() ([]byte, string, error) {
	prefixMIME, payload := SplitDataURI(strings.TrimSpace(i.Data))
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ValidationError("image is not valid base64", err)
	}
	mimeType := i.MIMEType
	if mimeType == "" {
		mimeType = prefixMIME
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return raw, mimeType, nil
}

// ClassificationRequest is one immutable classification input.
type ClassificationRequest struct {
	description string
	region      Region
	image       *Image
	onStatus    StatusFunc
}

// NewClassificationRequest validates the inputs and builds a request.
func NewClassificationRequest(description string, region Region, image *Image, onStatus StatusFunc) (ClassificationRequest, error) {
	description = strings.TrimSpace(description)
	if !region.Valid() {
		return ClassificationRequest{}, ValidationError(fmt.Sprintf("unsupported region %q", region), nil)
	}
	if image != nil && strings.TrimSpace(image.Data) == "" {
		image = nil
	}
	if description == "" && image == nil {
		return ClassificationRequest{}, ValidationError("a product description or an image is required", nil)
	}
	var img *Image
	if image != nil {
		if _, _, err := image.Decode(); err != nil {
			return ClassificationRequest{}, err
		}
		copied := *image
		img = &copied
	}
	return ClassificationRequest{
		description: description,
		region:      region,
		image:       img,
		onStatus:    onStatus,
	}, nil
}

func (r ClassificationRequest) Description() string { return r.description }
func (r ClassificationRequest) Region() Region      { return r.region }

// Image returns a copy of the attached image, or nil.
func (r ClassificationRequest) Image() *Image {
	if r.image == nil {
		return nil
	}
	img := *r.image
	return &img
}

// Status forwards a progress label to the caller's sink, if any.
func (r ClassificationRequest) Status(label string) {
	if r.onStatus != nil {
		r.onStatus(label)
	}
}

// SimilarItem is a related product with its own classification.
type SimilarItem struct {
	Name   string `json:"name"`
	HSCode string `json:"hsCode"`
	Reason string `json:"reason"`
}

// ClassificationResult is the validated outcome of one classification.
type ClassificationResult struct {
	HSCode            string        `json:"hsCode"`
	ProductName       string        `json:"productName"`
	Description       string        `json:"description"`
	DutyRate          string        `json:"dutyRate"`
	TaxRate           string        `json:"taxRate"`
	Restrictions      []string      `json:"restrictions"`
	Reasoning         string        `json:"reasoning"`
	ConfidenceScore   int           `json:"confidenceScore"`
	RequiredDocuments []string      `json:"requiredDocuments"`
	Source            Source        `json:"source"`
	SourceReference   string        `json:"sourceReference,omitempty"`
	SimilarItems      []SimilarItem `json:"similarItems"`
}

// Clone returns a deep copy.
func (r *ClassificationResult) Clone() *ClassificationResult {
	out := *r
	out.Restrictions = append([]string{}, r.Restrictions...)
	out.RequiredDocuments = append([]string{}, r.RequiredDocuments...)
	out.SimilarItems = append([]SimilarItem{}, r.SimilarItems...)
	return &out
}

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// ClampConfidence forces a score into [MinConfidence, MaxConfidence].
func ClampConfidence(score int) int {
	if score < MinConfidence {
		return MinConfidence
	}
	if score > MaxConfidence {
		return MaxConfidence
	}
	return score
}
