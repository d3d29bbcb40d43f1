package types

// Version is embedded into the CLI version output.
// Overridden at build time via -ldflags "-X ...".
var Version = "dev"

// DefaultWorkflowFile is the workflow file looked up when --config is not given.
const DefaultWorkflowFile = "slipway.yml"
