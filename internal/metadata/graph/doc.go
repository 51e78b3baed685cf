// Package graph implements metadata.Source over a BRICK-style property graph
// held in Neo4j.
//
// Equipment nodes are selected by label (AHU, VAV, meter, luminaire and
// occupancy detector labels are configurable), controllers supply the device
// address and identifier, and points hang off equipment through isPointOf
// relationships. A role resolves when exactly one point of the equipment
// carries one of the role's labels, either as a node label or as the value
// of the configured meta field property.
//
// All database access goes through the Querier interface so the adapter can
// be exercised without a server.
package graph
