package llm

import (
	"context"
	"sync"

	"github.com/spherical/hs-classifier/internal/prompt"
)

// ProviderStub answers every request with a fixed reply. It needs no
// credentials and is used for offline runs and tests.
const ProviderStub = "stub"

// StubResponse is the default reply of the stub generator.
const StubResponse = "```json\n" + `{
  "hsCode": "8518.30.20",
  "productName": "Wireless Bluetooth Headphones",
  "description": "Headphones and earphones, whether or not combined with a microphone",
  "dutyRate": "0%",
  "taxRate": "9% GST",
  "restrictions": ["IMDA equipment registration for radio-communication devices"],
  "reasoning": "GIR 1 and 6: over-ear headphones with Bluetooth receivers fall under heading 85.18; subheading 8518.30 covers headphones and earphones.",
  "confidenceScore": 92,
  "requiredDocuments": ["Commercial invoice", "Packing list", "Bill of lading or air waybill", "TradeNet import permit"],
  "source": "AI Model",
  "sourceReference": "Singapore Customs AHTN 2022",
  "similarItems": [
    {"name": "Wired earphones", "hsCode": "8518.30.20", "reason": "Same subheading; no wireless receiver"},
    {"name": "Headset with microphone for telephony", "hsCode": "8518.30.10", "reason": "Line telephone handsets are split out"},
    {"name": "Portable Bluetooth speaker", "hsCode": "8518.22.90", "reason": "Loudspeaker, not worn on the head"},
    {"name": "Hearing aid", "hsCode": "9021.40.00", "reason": "Medical appliance, Chapter 90"},
    {"name": "Audio amplifier", "hsCode": "8518.40.90", "reason": "Amplifies signals without reproducing sound"}
  ]
}` + "\n```"

func init() {
	Register(ProviderStub, func(Options) (Generator, error) {
		return NewStub(StubResponse), nil
	})
}

// Stub is a deterministic generator. It records the requests it receives.
type Stub struct {
	mu       sync.Mutex
	reply    *Output
	err      error
	requests []*prompt.Request
}

// NewStub returns a generator that always replies with text.
func NewStub(text string) *Stub {
	return &Stub{reply: &Output{Text: text, Model: ProviderStub}}
}

// NewFailingStub returns a generator that always fails with err.
func NewFailingStub(err error) *Stub {
	return &Stub{err: err}
}

// NewEmptyStub returns a generator that replies without any text payload.
func NewEmptyStub() *Stub {
	return &Stub{}
}

func (s *Stub) Name() string { return ProviderStub }

func (s *Stub) Generate(ctx context.Context, req *prompt.Request) (*Output, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.reply == nil {
		return nil, nil
	}
	out := *s.reply
	return &out, nil
}

// Requests returns the requests received so far.
func (s *Stub) Requests() []*prompt.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*prompt.Request(nil), s.requests...)
}
