// Package output persists generated documents, the manifest and the failure
// ledger under the run's output directory.
//
// Layout:
//
//	{output_dir}/configs/...                          emitted documents
//	{output_dir}/config_metadata.json                 manifest, only if non-empty
//	{output_dir}/errors/unmapped_device_details       ledger, only if non-empty
//	{output_dir}/errors/unmapped_vavs.json            driver runs with orphan VAVs
package output
