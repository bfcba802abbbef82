package asyncapi

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

// document is the subset of an AsyncAPI document the engine reads.
// yaml.v3 decodes both YAML and JSON encodings.
type document struct {
	AsyncAPI string                 `yaml:"asyncapi"`
	Info     map[string]any         `yaml:"info"`
	Channels map[string]channelItem `yaml:"channels"`
}

type channelItem struct {
	Publish   *channelOperation `yaml:"publish"`
	Subscribe *channelOperation `yaml:"subscribe"`
}

type channelOperation struct {
	OperationID string `yaml:"operationId"`
	Summary     string `yaml:"summary"`
	Deprecated  bool   `yaml:"deprecated"`
}

// Handler implements spec.Handler for AsyncAPI documents.
type Handler struct{}

// New creates an AsyncAPI spec handler.
func New() *Handler {
	return &Handler{}
}

// Format returns the AsyncAPI spec type.
func (h *Handler) Format() contract.SpecType {
	return contract.SpecTypeAsyncAPI
}

// CanHandle reports whether raw carries an "asyncapi" field, in YAML or
// JSON form. It never panics.
func (h *Handler) CanHandle(raw []byte) bool {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return false
	}
	_, ok := doc["asyncapi"]
	return ok
}

// ParseSpec decodes the document and extracts one operation per channel
// and direction, cached for the spec's lifetime.
func (h *Handler) ParseSpec(raw []byte) (*spec.ParsedSpec, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: err}
	}
	if doc.AsyncAPI == "" {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: fmt.Errorf("document has no asyncapi field")}
	}
	if len(doc.Channels) == 0 {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: fmt.Errorf("document declares no channels")}
	}

	return &spec.ParsedSpec{
		Format:     h.Format(),
		Document:   &doc,
		Operations: extractOperations(&doc),
	}, nil
}

// extractOperations builds the operation list ordered by channel then
// direction so the cache is deterministic.
func extractOperations(doc *document) []contract.Operation {
	channels := make([]string, 0, len(doc.Channels))
	for ch := range doc.Channels {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	var ops []contract.Operation
	for _, channel := range channels {
		item := doc.Channels[channel]
		if item.Publish != nil {
			ops = append(ops, channelToOperation("publish", channel, item.Publish))
		}
		if item.Subscribe != nil {
			ops = append(ops, channelToOperation("subscribe", channel, item.Subscribe))
		}
	}
	return ops
}

// channelToOperation builds one operation for a channel direction. The
// id is the declared operationId when present, else generated from the
// direction and channel.
func channelToOperation(direction, channel string, op *channelOperation) contract.Operation {
	id := op.OperationID
	if id == "" {
		id = fmt.Sprintf("%s.%s", direction, channel)
	}
	return contract.Operation{
		ID:         id,
		Kind:       contract.KindEvent,
		Channel:    channel,
		Deprecated: op.Deprecated,
	}
}

// FixtureScorer returns nil: event fixtures use the default scorer.
func (h *Handler) FixtureScorer() spec.FixtureScorer {
	return nil
}
