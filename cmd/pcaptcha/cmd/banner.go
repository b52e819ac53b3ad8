package cmd

import (
	"fmt"
)

const banner = `
        _____          _____ _______ _____ _    _
  _ __ / ____|   /\   |  __ \__   __/ ____| |  | |   /\
 | '_ \ |       /  \  | |__) | | | | |    | |__| |  /  \
 | |_) | |     / /\ \ |  ___/  | | | |    |  __  | / /\ \
 | .__/| |____/ ____ \| |      | | | |____| |  | |/ ____ \
 |_|    \_____/_/    \_\_|     |_|  \_____|_|  |_/_/    \_\

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Spatial CAPTCHA Service - Version %s\x1b[0m\n\n", Version)
}
