package banner

import (
	"browseq/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const ascii = `
    __                                   
   / /_  _________ _      __________ _ 
  / __ \/ ___/ __ \ | /| / / ___/ _ \/ __ '/
 / /_/ / /  / /_/ / |/ |/ (__  )  __/ /_/ / 
/_.___/_/   \____/|__/|__/____/\___/\__, /  
                                      /_/   `

func GetString() string {
	style := lipgloss.DefaultRenderer().NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n"
}
