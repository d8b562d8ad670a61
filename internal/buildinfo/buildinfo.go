package buildinfo

import "fmt"

const Graffiti = "       _                \n  ___ | | ___  _ __  ___ \n / _ \\| |/ _ \\| '_ \\/ __|\n|  __/| |  __/| | | \\__ \\\n \\___||_|\\___||_| |_|___/\n\n"

var (
	BuildTag string = "v0.0.0"
	Name     string = "ELENS"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

var Info buildinfo

// String is the one-line build summary printed under the banner.
func (b buildinfo) String() string {
	built := b.Time()
	if built == "" {
		built = "unknown build time"
	}
	return fmt.Sprintf("%s: %s, %s", b.Name(), built, b.Tag())
}
