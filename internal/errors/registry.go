package errors

import (
	"maps"
	"slices"
)

// ErrorTemplate is the registered description of an error code.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// element errors

	"E001": {
		Category: CategoryElement,
		Message:  "Malformed element child",
		Detail:   "Children must be elements, slices of elements, nil, or primitive values (strings, numbers, booleans, fmt.Stringer) that can be wrapped into text.",
	},
	"E002": {
		Category: CategoryElement,
		Message:  "Unknown component",
		Detail:   "The element document names a component that is not present in the registry passed to Decode.",
	},
	"E003": {
		Category: CategoryElement,
		Message:  "Invalid element type",
		Detail:   "An element type must be a tag string, an element.Type, or a *element.Component.",
	},
	"E004": {
		Category: CategoryElement,
		Message:  "Invalid element document",
		Detail:   "The document could not be parsed into an element tree.",
	},

	// render errors

	"E010": {
		Category: CategoryRender,
		Message:  "Host node creation failed",
		Detail:   "The host adapter could not create a node. The render pass was discarded; the committed tree is untouched.",
	},
	"E011": {
		Category: CategoryRender,
		Message:  "Component render panicked",
		Detail:   "A function component panicked while rendering. The render pass was discarded; the committed tree is untouched.",
	},
	"E012": {
		Category: CategoryCommit,
		Message:  "Commit failed",
		Detail:   "A host mutation failed during commit. If no mutation reached the host the committed tree is kept as the baseline; otherwise the baseline is dropped and the next render builds the tree from scratch, so render into a fresh container.",
	},
	"E013": {
		Category: CategoryRender,
		Message:  "Nil element",
		Detail:   "Render requires a non-nil root element.",
	},
	"E014": {
		Category: CategoryRender,
		Message:  "Nil container",
		Detail:   "Render requires a host node to render into.",
	},

	// configuration errors

	"E020": {
		Category: CategoryConfig,
		Message:  "Failed to read configuration",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E021": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value is out of range.",
	},

	// protocol errors

	"E030": {
		Category: CategoryProtocol,
		Message:  "Invalid patch frame",
		Detail:   "A patches frame could not be decoded.",
	},
	"E031": {
		Category: CategoryProtocol,
		Message:  "Patch sequence gap",
		Detail:   "A patches frame arrived out of order. The viewer missed a batch and its tree no longer matches the host; reconnect to receive a fresh snapshot.",
	},
	"E032": {
		Category: CategoryProtocol,
		Message:  "Unknown node in patch",
		Detail:   "A patch referenced a node id the viewer was never told about.",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	return slices.Sorted(maps.Keys(registry))
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces the template for code. It is not safe to call
// concurrently with New.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
