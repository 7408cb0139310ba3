// Package routes maps public API prefixes onto the backend services.
package routes

import (
	"github.com/gin-gonic/gin"

	"surveyhub-backend/shared/config"
)

const (
	ServiceAuth         = "auth"
	ServiceCore         = "core"
	ServiceSurvey       = "survey"
	ServiceBilling      = "billing"
	ServiceContent      = "content"
	ServiceNotification = "notification"
)

// Services returns the upstream base URL of every service.
func Services(cfg *config.Config) map[string]string {
	return map[string]string{
		ServiceAuth:         cfg.AuthServiceURL,
		ServiceCore:         cfg.CoreServiceURL,
		ServiceSurvey:       cfg.SurveyServiceURL,
		ServiceBilling:      cfg.BillingServiceURL,
		ServiceContent:      cfg.ContentServiceURL,
		ServiceNotification: cfg.NotificationServiceURL,
	}
}

// Limits holds the rate limit middleware per traffic class. Nil entries
// disable limiting for that class.
type Limits struct {
	General gin.HandlerFunc
	Public  gin.HandlerFunc
}

func (l Limits) chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Register mounts the public API. Service-internal endpoints such as email
// delivery and /ws/send are not exposed.
func Register(router gin.IRouter, p *Proxy, limits Limits) {
	general := func(service string) []gin.HandlerFunc {
		return limits.chain(limits.General, p.To(service))
	}
	public := func(service string) []gin.HandlerFunc {
		return limits.chain(limits.Public, p.To(service))
	}
	prefix := func(path string, handlers []gin.HandlerFunc) {
		router.Any(path, handlers...)
		router.Any(path+"/*path", handlers...)
	}

	router.Any("/api/auth/*path", general(ServiceAuth)...)

	router.Any("/api/roles", general(ServiceCore)...)
	prefix("/api/organizations", general(ServiceCore))
	router.Any("/api/invitations/*path", general(ServiceCore)...)
	prefix("/api/usage", general(ServiceCore))
	router.Any("/api/admin/*path", general(ServiceCore)...)

	prefix("/api/surveys", general(ServiceSurvey))
	router.GET("/api/public/*path", public(ServiceSurvey)...)

	router.Any("/api/billing/*path", general(ServiceBilling)...)
	router.Any("/api/user/*path", general(ServiceBilling)...)
	// Stripe deliveries are never rate limited.
	router.POST("/api/webhooks/stripe", p.To(ServiceBilling))

	prefix("/api/blog", public(ServiceContent))
	router.Any("/api/content/*path", general(ServiceContent)...)

	router.GET("/ws/notifications", general(ServiceNotification)...)
}
