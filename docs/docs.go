package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Helpdesk Dispatch",
    "description": "Technician assignment, escalation and priority blending for helpdesk tickets",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "AdminKey": {"type": "apiKey", "in": "header", "name": "X-Admin-Key"}
  },
  "tags": [
    {"name": "tickets", "description": "Ticket and escalation reads"},
    {"name": "technicians", "description": "Technicians with live open-ticket counts"},
    {"name": "priority", "description": "Blended priority calculator"},
    {"name": "dispatch", "description": "Assignment, escalation and batch processing"}
  ],
  "paths": {}
}`

// SwaggerInfo is read by gin-swagger through the swag registry.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "Helpdesk Dispatch",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
