package config

// DefaultConfig returns the built-in configuration: the stock four-category
// install sequence and installer invocation defaults. Paths are left empty
// here and filled in from conventional locations by Load.
func DefaultConfig() *Config {
	return &Config{
		Steps: []StepConfig{
			{Label: "Chipset"},
			{Label: "Serial-IO", After: []string{"Chipset"}},
			{Label: "HID-Event-Filter", After: []string{"Serial-IO"}},
			{Label: "Bluetooth", After: []string{"HID-Event-Filter"}},
		},
		Installer: InstallerConfig{
			Extensions: []string{".run", ".bin", ".sh"},
			SilentArgs: []string{"--quiet", "--no-restart"},
		},
		Devices: DeviceToolConfig{
			Exclude: []string{"Virtual", "Root Hub"},
		},
		RebootCmd: []string{"systemctl", "reboot"},
	}
}
