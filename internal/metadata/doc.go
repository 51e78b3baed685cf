// Package metadata defines the contract between the generator and the
// building metadata back ends. A Source answers two questions: which
// equipment of a kind exists, and which concrete point plays a logical role
// for one piece of equipment. The tabular and graph subpackages provide the
// two production implementations; Static is an in-memory one.
package metadata
