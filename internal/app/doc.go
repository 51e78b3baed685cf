// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the generation lifecycle (load the run
// configuration, open the metadata source, run one flavor, write the
// output), decoupled from any specific entrypoint like a CLI.
package app
