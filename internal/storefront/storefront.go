package storefront

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "storefront/internal/errors"
)

// GraphQLPath is where the endpoint is mounted
const GraphQLPath = "/graphql/"

// Options configures the base application
type Options struct {
	ShopName     string
	AllowedHosts []string
	Logger       *slog.Logger
}

// QueryRequest is the body of a GraphQL POST
type QueryRequest struct {
	Query         string         `json:"query" validate:"required,max=65536"`
	OperationName string         `json:"operationName,omitempty" validate:"omitempty,max=256"`
	Variables     map[string]any `json:"variables,omitempty"`

	host string
}

// Bind implements render.Binder
func (q *QueryRequest) Bind(r *http.Request) error {
	q.host = r.Host
	return nil
}

// GraphQLError is one entry of a response's errors list
type GraphQLError struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// QueryResponse is the body returned for a GraphQL POST
type QueryResponse struct {
	Data   map[string]any `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// App is the base application
type App struct {
	router   chi.Router
	opts     Options
	logger   *slog.Logger
	errors   *apperrors.ErrorHandler
	validate *validator.Validate

	schemaOnce   sync.Once
	schema       *Schema
	schemaLoaded atomic.Bool
}

// New builds the application and its routes. The schema is not loaded.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ShopName == "" {
		opts.ShopName = "Storefront"
	}

	a := &App{
		opts:     opts,
		logger:   logger.With(slog.String("component", "storefront")),
		errors:   apperrors.NewErrorHandler(logger, false),
		validate: validator.New(),
	}

	r := chi.NewRouter()
	r.Use(a.allowedHosts)
	r.NotFound(a.errors.NotFound)
	r.MethodNotAllowed(a.errors.MethodNotAllowed)
	r.Get(GraphQLPath, a.handleDescribe)
	r.Post(GraphQLPath, a.handleQuery)
	a.router = r

	return a
}

// ServeHTTP implements http.Handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// SchemaLoaded reports whether the schema has been built
func (a *App) SchemaLoaded() bool {
	return a.schemaLoaded.Load()
}

// Schema returns the schema, building it on first use
func (a *App) Schema() *Schema {
	a.schemaOnce.Do(a.loadSchema)
	return a.schema
}

func (a *App) loadSchema() {
	start := time.Now()
	a.schema = &Schema{
		loadedAt: start,
		fields: map[string]Field{
			"__typename": {
				Description: "Name of the root type",
				Resolve: func(*QueryRequest) (any, error) {
					return "Query", nil
				},
			},
			"shop": {
				Description: "The shop serving this request",
				Resolve: func(req *QueryRequest) (any, error) {
					return map[string]any{
						"name":   a.opts.ShopName,
						"domain": stripPort(req.host),
					}, nil
				},
			},
		},
	}
	a.schemaLoaded.Store(true)
	a.logger.Info("graphql schema loaded",
		slog.Int("fields", len(a.schema.fields)),
		slog.Duration("duration", time.Since(start)))
}

func (a *App) allowedHosts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hostAllowed(r.Host, a.opts.AllowedHosts) {
			a.logger.WarnContext(r.Context(), "disallowed host",
				slog.String("host", r.Host),
				slog.String("path", r.URL.Path))
			render.Render(w, r, apperrors.NewErrorResponse(
				apperrors.NewWithDetails(http.StatusBadRequest, "DISALLOWED_HOST", "Invalid HTTP_HOST header", r.Host)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type schemaDescription struct {
	Endpoint string    `json:"endpoint"`
	Fields   []string  `json:"fields"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (a *App) handleDescribe(w http.ResponseWriter, r *http.Request) {
	s := a.Schema()
	render.JSON(w, r, schemaDescription{
		Endpoint: GraphQLPath,
		Fields:   s.FieldNames(),
		LoadedAt: s.loadedAt,
	})
}

func (a *App) handleQuery(w http.ResponseWriter, r *http.Request) {
	req := &QueryRequest{}
	if err := render.Bind(r, req); err != nil {
		a.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.errors.HandleError(w, r, validationError(err))
		return
	}

	data, errs := a.Schema().Execute(req)
	render.JSON(w, r, QueryResponse{Data: data, Errors: errs})
}

func validationError(err error) *apperrors.APIError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationErrors(nil)
	}
	out := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return apperrors.NewValidationErrors(out)
}
