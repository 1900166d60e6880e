package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
)

// Theme shows or changes the colour theme preference.
func (a *App) Theme(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printTheme(a, a.prefs.Get())
		return nil
	}

	var (
		st  services.ThemeState
		err error
	)
	if args[0] == "cycle" {
		st, err = a.prefs.Cycle(ctx)
	} else {
		p, ok := models.ParsePreference(args[0])
		if !ok {
			return usageError("theme [light|dark|system|cycle]")
		}
		st, err = a.prefs.Set(ctx, p)
	}
	if err != nil {
		return err
	}
	printTheme(a, st)
	return nil
}

func printTheme(a *App, st services.ThemeState) {
	if st.Preference == models.PreferenceSystem {
		fmt.Fprintf(a.out, "Theme: system (currently %s)\n", st.Resolved)
		return
	}
	fmt.Fprintf(a.out, "Theme: %s\n", st.Resolved)
}
