package routes

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
)

// Proxy forwards requests to the backend services by name.
type Proxy struct {
	proxies map[string]*httputil.ReverseProxy
	log     *zap.Logger
}

// NewProxy builds one reverse proxy per service base URL.
func NewProxy(services map[string]string, log *zap.Logger) (*Proxy, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Proxy{proxies: make(map[string]*httputil.ReverseProxy, len(services)), log: log.Named("proxy")}
	for name, raw := range services {
		target, err := url.Parse(raw)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid URL %q for service %s", raw, name)
		}
		p.proxies[name] = p.newReverseProxy(name, target)
	}
	return p, nil
}

func (p *Proxy) newReverseProxy(name string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		// The gateway already stamped the request id on the response.
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del(httpx.RequestIDHeader)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.log.Warn("upstream request failed",
				zap.String("service", name),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"Service unavailable"}`))
		},
	}
}

// To returns a handler forwarding to service. It panics on an unknown name
// so a routing typo fails at startup.
func (p *Proxy) To(service string) gin.HandlerFunc {
	proxy, ok := p.proxies[service]
	if !ok {
		panic("routes: no upstream configured for " + service)
	}
	return func(c *gin.Context) {
		logger.FromContext(c, p.log).Debug("proxying", zap.String("service", service))
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
