package ui

// Config carries the window, speed and audio settings for an App.
type Config struct {
	Title string // window title
	Scale int    // integer upscale factor, 0 derives one from the core resolution
	Speed int    // emulation speed multiplier
	Mute  bool   // disable tone output
}

// Defaults fills unset fields with sensible values.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "multiemu"
	}
	if c.Speed <= 0 {
		c.Speed = 1
	}
}
