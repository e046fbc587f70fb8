package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/MedIngest/internal/config"
)

var once sync.Once
var sharedClient *http.Client

// Client returns the pooled HTTP client shared by the embedding providers.
func Client() *http.Client {
	once.Do(func() {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConns = config.MaxIdleConns
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		transport.IdleConnTimeout = config.IdleConnTimeout
		sharedClient = &http.Client{Transport: transport}
	})
	return sharedClient
}
