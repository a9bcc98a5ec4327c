package stack

import "fmt"

// =============================================================================
// Service Summary Functions
// =============================================================================

// ServiceURLs returns the operator-facing endpoints for a domain.
//
// Example:
//
//	ServiceURLs("example.com")[0] // {Name: "Portainer", URL: "https://portainer.example.com"}
func ServiceURLs(domain string) []ServiceURL {
	host := func(sub string) string {
		return fmt.Sprintf("https://%s.%s", sub, domain)
	}
	return []ServiceURL{
		{Name: "Portainer", URL: host("portainer")},
		{Name: "n8n", URL: host("n8n")},
		{Name: "n8n webhooks", URL: host("n8n") + "/webhook"},
		{Name: "Evolution API", URL: host("evolution")},
		{Name: "Chatwoot", URL: host("chatwoot")},
		{Name: "MinIO S3", URL: host(StorageProbe.Subdomain)},
		{Name: "MinIO console", URL: host("minio")},
		{Name: "RabbitMQ", URL: host("rabbitmq")},
	}
}
