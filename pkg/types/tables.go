package types

// Standard table names, in foreign key dependency order.
const (
	UsersTable      = "users"
	PlantsTable     = "plants"
	EventsTable     = "plant_events"
	PhotosTable     = "plant_photos"
	TagsTable       = "tags"
	EventTypesTable = "event_types"
)

// StandardTableNames lists all standard table names for enumeration.
// Parents come before children so the list can drive ordered loads.
var StandardTableNames = []string{
	UsersTable,
	PlantsTable,
	EventsTable,
	PhotosTable,
	TagsTable,
	EventTypesTable,
}
