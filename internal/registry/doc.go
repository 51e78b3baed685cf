// Package registry provides the central "glue" for the flavor system.
//
// Every agent flavor (driver, economizer, ILC, AirsideRCx) lives in its own
// module package and registers a Flavor here: the name used on the command
// line, the default output directory, the config_template sections it cannot
// run without, and a factory for its Generator.
//
// During a run the selected flavor is validated against the loaded
// configuration before any metadata is queried, so a missing template section
// fails fast and nothing is written.
package registry
