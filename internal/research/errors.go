package research

import "errors"

// Errors returned by the service. Provider failures wrap ErrProvider or
// ErrTranslation together with the underlying cause.
var (
	ErrEmptyQuery      = errors.New("please enter a query")
	ErrMissingAPIKey   = errors.New("the API key is not set in the environment; check the deployment settings")
	ErrUnknownCountry  = errors.New("unknown country")
	ErrUnknownLanguage = errors.New("language is not offered for this country")
	ErrInvalidKind     = errors.New("unknown research kind")
	ErrNoTargetLang    = errors.New("no target language")
	ErrProvider        = errors.New("error communicating with the AI service")
	ErrTranslation     = errors.New("error while translating")
)

// Messages attached to non-success outcomes.
const (
	MsgUnparsed  = "the AI response could not be parsed or did not meet the sourcing requirement; the raw text is shown instead"
	MsgNoResults = "no relevant information found; try different keywords or describe the situation differently"
)
