package model

// Window is one row of a window listing, front to back.
type Window struct {
	App     string `json:"app"               yaml:"app"`
	PID     int    `json:"pid"               yaml:"pid"`
	Title   string `json:"title"             yaml:"title"`
	Bounds  Rect   `json:"bounds"            yaml:"bounds"`
	Focused bool   `json:"focused,omitempty" yaml:"focused,omitempty"`
	ZOrder  int    `json:"z"                 yaml:"z"`
}

// App is one row of an application listing.
type App struct {
	Name    string   `json:"name"              yaml:"name"`
	PID     int      `json:"pid"               yaml:"pid"`
	Focused bool     `json:"focused,omitempty" yaml:"focused,omitempty"`
	Windows []Window `json:"windows"           yaml:"windows"`
}
