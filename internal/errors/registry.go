package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E100-E109)
	// ============================================

	"E101": {
		Category: CategoryRouting,
		Message:  "Route not found",
		Detail:   "No route matched the requested path. The request is answered with 404.",
		DocURL:   "https://vango.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryRouting,
		Message:  "Invalid route parameter",
		Detail:   "A route segment matched but its parameter could not be parsed.",
		DocURL:   "https://vango.dev/docs/errors/E102",
	},

	// ============================================
	// Rendering Errors (E110-E129)
	// ============================================

	"E110": {
		Category: CategoryRendering,
		Message:  "Error while rendering",
		Detail:   "One or more components reported an error to the root error boundary before the first chunk was sent.",
		DocURL:   "https://vango.dev/docs/errors/E110",
	},
	"E111": {
		Category: CategoryRendering,
		Message:  "Failed to write page shell",
		Detail:   "Writing the head, after-main or after-body markup failed.",
		DocURL:   "https://vango.dev/docs/errors/E111",
	},
	"E112": {
		Category: CategoryRendering,
		Message:  "Failed to render suspense boundary",
		Detail:   "A resolved suspense boundary could not be rendered into its replacement chunk.",
		DocURL:   "https://vango.dev/docs/errors/E112",
	},
	"E113": {
		Category: CategoryRendering,
		Message:  "Render session aborted",
		Detail:   "The render session ended before the initial result was known.",
		DocURL:   "https://vango.dev/docs/errors/E113",
	},
	"E114": {
		Category: CategoryRendering,
		Message:  "Executor saturated",
		Detail:   "No render worker became available before the request was cancelled.",
		DocURL:   "https://vango.dev/docs/errors/E114",
	},

	// ============================================
	// Cache Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryCache,
		Message:  "Incremental cache read failed",
		Detail:   "The cached render could not be read. The request falls back to a full render.",
		DocURL:   "https://vango.dev/docs/errors/E130",
	},
	"E131": {
		Category: CategoryCache,
		Message:  "Incremental cache write failed",
		Detail:   "The rendered page could not be stored. The response is unaffected.",
		DocURL:   "https://vango.dev/docs/errors/E131",
	},
	"E132": {
		Category: CategoryCache,
		Message:  "Cached render is not valid UTF-8",
		DocURL:   "https://vango.dev/docs/errors/E132",
	},

	// ============================================
	// Hydration Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryHydration,
		Message:  "Failed to serialize hydration data",
		Detail:   "A server future value could not be encoded for the client.",
		DocURL:   "https://vango.dev/docs/errors/E140",
	},

	// ============================================
	// Config Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   "https://vango.dev/docs/errors/E150",
	},
	"E151": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		DocURL:   "https://vango.dev/docs/errors/E151",
	},
	"E152": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://vango.dev/docs/errors/E152",
	},
	"E153": {
		Category: CategoryConfig,
		Message:  "Invalid index.html",
		Detail:   "The index.html shell must contain a <title>, a </head> and a <div id=\"main\"> element.",
		DocURL:   "https://vango.dev/docs/errors/E153",
	},
}
