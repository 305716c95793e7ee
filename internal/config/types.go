package config

// StepConfig defines one driver category in the fixed install sequence.
// The declared order IS the execution order; After only expresses constraints
// that the declared order must satisfy (validated at load time).
type StepConfig struct {
	Label string   `json:"label"`           // Driver category, matched against installer filenames (e.g., "Chipset")
	After []string `json:"after,omitempty"` // Labels that must appear earlier in the sequence
}

// InstallerConfig controls how installer artifacts are located and invoked.
type InstallerConfig struct {
	Extensions []string `json:"extensions,omitempty"`  // Filename extensions recognized as installers
	SilentArgs []string `json:"silent_args,omitempty"` // Flags for the unattended first attempt
}

// DeviceToolConfig defines the external device utility command lines.
// Enumerate is expected to print one device per line as
// "STATUS\tINSTANCE-ID\tNAME"; any status other than OK marks a problem
// device. Disable and Remove receive the instance ID as their final argument.
type DeviceToolConfig struct {
	Enumerate []string `json:"enumerate,omitempty"`
	Disable   []string `json:"disable,omitempty"`
	Remove    []string `json:"remove,omitempty"`
	Exclude   []string `json:"exclude,omitempty"` // Device name/ID substrings exempt from cleanup
}

// Config is the top-level configuration.
type Config struct {
	IntakeDir  string   `json:"intake_dir"`               // Directory scanned for installer artifacts
	MarkerPath string   `json:"marker_path"`              // Progress marker file
	HistoryDB  string   `json:"history_db"`               // SQLite run-history database
	LogPath    string   `json:"log_path"`                 // Append-only log file
	RebootCmd  []string `json:"reboot_command,omitempty"` // Invoked after a successful install

	Steps     []StepConfig     `json:"steps"`
	Installer InstallerConfig  `json:"installer"`
	Devices   DeviceToolConfig `json:"devices"`
}
