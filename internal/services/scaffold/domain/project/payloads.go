package project

// CreatePayload carries project.create command and project.created event data.
type CreatePayload struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	OrganizationID  string `json:"organization_id"`
	TemplateID      string `json:"template_id"`
	TemplateVersion string `json:"template_version,omitempty"`
	MaxServices     int    `json:"max_services,omitempty"`
}

// UpdatePayload carries field updates for project.update and project.updated.
// Keys are field names; only name, description, and status are recognized.
type UpdatePayload struct {
	Fields map[string]string `json:"fields"`
}

// DeletePayload carries project.delete and project.deleted data.
type DeletePayload struct {
	Reason string `json:"reason,omitempty"`
}

// ServiceAddPayload carries service.add and service.added data.
type ServiceAddPayload struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
}

// ServiceUpdatePayload carries service.update and service.updated data.
type ServiceUpdatePayload struct {
	ServiceID string            `json:"service_id"`
	Fields    map[string]string `json:"fields"`
}

// ServiceRemovePayload carries service.remove and service.removed data.
type ServiceRemovePayload struct {
	ServiceID string `json:"service_id"`
}

// RelationshipEstablishPayload carries relationship.establish and
// relationship.established data.
type RelationshipEstablishPayload struct {
	RelationshipID string `json:"relationship_id"`
	SourceID       string `json:"source_id"`
	TargetID       string `json:"target_id"`
	Type           string `json:"type"`
}

// RelationshipRemovePayload carries relationship.remove and
// relationship.removed data.
type RelationshipRemovePayload struct {
	RelationshipID string `json:"relationship_id"`
}

// TemplateRecheckPayload carries template.recheck and template.rechecked data.
type TemplateRecheckPayload struct {
	TemplateID      string `json:"template_id"`
	TemplateVersion string `json:"template_version"`
	Compatible      bool   `json:"compatible"`
}

// RepositoryAttachPayload carries repository.attach and repository.attached data.
type RepositoryAttachPayload struct {
	RepositoryURL string `json:"repository_url"`
}

// DeploymentCompletePayload carries deployment.complete and
// deployment.completed data.
type DeploymentCompletePayload struct {
	ServiceID    string `json:"service_id"`
	DeploymentID string `json:"deployment_id"`
}
