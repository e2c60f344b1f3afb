package capabilities

import (
	"fmt"
	"strings"
)

// EntityType es el enum cerrado de entidades que pueden tener roles/permisos.
type EntityType string

const (
	EntityIndividual        EntityType = "Individual"
	EntityArtist            EntityType = "Artist"
	EntityVenue             EntityType = "Venue"
	EntityOrganizer         EntityType = "Organizer"
	EntityPerformanceAgency EntityType = "PerformanceAgency"
	EntityStaffingAgency    EntityType = "StaffingAgency"
	EntityRentalCompany     EntityType = "RentalCompany"
	EntityProductionCompany EntityType = "ProductionCompany"
	EntityPromoter          EntityType = "Promoter"
	EntityPublicLocation    EntityType = "PublicLocation"
	EntityPrivateLocation   EntityType = "PrivateLocation"
	EntityVirtualLocation   EntityType = "VirtualLocation"
	EntityEvent             EntityType = "Event"
	EntityEquipmentAsset    EntityType = "EquipmentAsset"
	EntityEventPackage      EntityType = "EventPackage"
)

var entityTypes = []EntityType{
	EntityIndividual,
	EntityArtist,
	EntityVenue,
	EntityOrganizer,
	EntityPerformanceAgency,
	EntityStaffingAgency,
	EntityRentalCompany,
	EntityProductionCompany,
	EntityPromoter,
	EntityPublicLocation,
	EntityPrivateLocation,
	EntityVirtualLocation,
	EntityEvent,
	EntityEquipmentAsset,
	EntityEventPackage,
}

// EntityTypes devuelve una copia del enum, en orden.
func EntityTypes() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

func (t EntityType) Valid() bool {
	for _, et := range entityTypes {
		if t == et {
			return true
		}
	}
	return false
}

// ParseEntityType acepta el valor canónico y variantes de URL:
// "event", "performance_agency", "performance-agency".
func ParseEntityType(raw string) (EntityType, error) {
	norm := normalizeEntityType(raw)
	if norm == "" {
		return "", fmt.Errorf("%w: entity_type required", ErrInvalidArgument)
	}
	for _, et := range entityTypes {
		if normalizeEntityType(string(et)) == norm {
			return et, nil
		}
	}
	return "", fmt.Errorf("%w: unknown entity_type %q", ErrInvalidArgument, strings.TrimSpace(raw))
}

func normalizeEntityType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// Permission es un derecho con nombre. El catálogo autoritativo vive en el backend;
// acá solo listamos los que conocemos.
type Permission string

const (
	PermAssignEventRoles   Permission = "ASSIGN_EVENT_ROLES"
	PermEditEventLogistics Permission = "EDIT_EVENT_LOGISTICS"
	PermManageMembers      Permission = "MANAGE_MEMBERS"
	PermManageAssets       Permission = "MANAGE_ASSETS"
	PermPublishMedia       Permission = "PUBLISH_MEDIA"
	PermBookEvents         Permission = "BOOK_EVENTS"
	PermManageTicketing    Permission = "MANAGE_TICKETING"
	PermManagePermits      Permission = "MANAGE_PERMITS"
	PermCreateProfile      Permission = "CREATE_PROFILE"
	PermEditProfile        Permission = "EDIT_PROFILE"
	PermJoinEntity         Permission = "JOIN_ENTITY"
)

var knownPermissions = []Permission{
	PermAssignEventRoles,
	PermEditEventLogistics,
	PermManageMembers,
	PermManageAssets,
	PermPublishMedia,
	PermBookEvents,
	PermManageTicketing,
	PermManagePermits,
	PermCreateProfile,
	PermEditProfile,
	PermJoinEntity,
}

func Permissions() []Permission {
	out := make([]Permission, len(knownPermissions))
	copy(out, knownPermissions)
	return out
}

func (p Permission) Valid() bool {
	for _, kp := range knownPermissions {
		if p == kp {
			return true
		}
	}
	return false
}

// ParsePermission acepta "manage_members", "manage-members" o "MANAGE_MEMBERS".
func ParsePermission(raw string) (Permission, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	if s == "" {
		return "", fmt.Errorf("%w: permission required", ErrInvalidArgument)
	}
	p := Permission(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, strings.TrimSpace(raw))
	}
	return p, nil
}

// Capability asocia el nombre que ve la UI con el permiso que se consulta.
type Capability struct {
	Key        string     `json:"key"`
	Permission Permission `json:"permission"`
}

// DefaultCatalog es el catálogo de la página de entidad.
func DefaultCatalog() []Capability {
	return []Capability{
		{Key: "canAssignRoles", Permission: PermAssignEventRoles},
		{Key: "canEditLogistics", Permission: PermEditEventLogistics},
		{Key: "canManageMembers", Permission: PermManageMembers},
		{Key: "canManageAssets", Permission: PermManageAssets},
		{Key: "canPublishMedia", Permission: PermPublishMedia},
	}
}

// Record es el resultado plano: una key por entrada del catálogo, nunca menos.
type Record map[string]bool

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Result agrega el diagnóstico de qué consultas fallaron.
// Failed no cambia Record: esas keys ya están en false.
type Result struct {
	Record Record
	Failed []Permission
}

func (r Result) Degraded() bool {
	return len(r.Failed) > 0
}
