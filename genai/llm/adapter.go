package llm

// Adapter wraps a Model with the system-block construction and cost
// accounting operations spec §4.4 requires of the LM Adapter component.
type Adapter interface {
	Model

	// BuildSystemBlock renders the Allowed-Tools View and user profile into
	// a single system message reused verbatim across every iteration of one
	// request, so a caching-aware provider can serve it from cache after the
	// first call.
	BuildSystemBlock(tools []Tool, userProfile string) Message

	// Cost estimates USD spend for one usage snapshot using the adapter's
	// configured per-million-token prices.
	Cost(usage *Usage) float64
}

// CacheControlKey is the ContentItem.Metadata key used to mark a content
// item as an immutable, cacheable segment of the prompt.
const CacheControlKey = "cache_control"

// CacheControlEphemeral marks a segment as cacheable for the lifetime of a
// short-TTL provider-side cache (the common case for multi-iteration tool
// loops within one request).
const CacheControlEphemeral = "ephemeral"

// NewCacheableSystemMessage builds a system message whose sole content item
// is marked cacheable, so providers that support prompt caching reuse it
// across iterations instead of re-billing it as fresh input each time.
func NewCacheableSystemMessage(text string) Message {
	item := NewTextContent(text)
	item.Metadata = map[string]interface{}{CacheControlKey: CacheControlEphemeral}
	return Message{Role: RoleSystem, Items: []ContentItem{item}, Content: text}
}
