// Package docs SurveyHub API documentation
package docs

// Swagger documentation info
// @title SurveyHub API
// @version 1.0
// @description Central API documentation for the SurveyHub services
// @termsOfService https://surveyhub.app/terms

// @contact.name API Support
// @contact.email support@surveyhub.app

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name surveyhub_session

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

// @tag.name auth
// @tag.description Sign in through AuthKit and session management
// @tag.name organizations
// @tag.description Organizations and the caller's permissions in them
// @tag.name members
// @tag.description Organization membership
// @tag.name invitations
// @tag.description Member invitations
// @tag.name usage
// @tag.description Plan usage against tier limits
// @tag.name surveys
// @tag.description Surveys and public survey retrieval
// @tag.name billing
// @tag.description Stripe checkout, portal, webhooks and subscription status
// @tag.name content
// @tag.description Marketing blog
// @tag.name notifications
// @tag.description Transactional email and dashboard push
// @tag.name admin
// @tag.description Super admin dashboard and impersonation
