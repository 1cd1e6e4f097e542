package ports

import "net/http"

// HTTPClient abstracts HTTP operations for dependency injection.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
