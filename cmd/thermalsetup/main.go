// thermalsetup is a standalone entrypoint for building and installing the
// ec_sys kernel module, for users who'd rather not launch the full TUI
// just to get the ACPI debug backend working.
package main

import (
	"fmt"
	"os"

	"github.com/junevm/thermalctl/internal/setup"
)

func main() {
	if err := setup.CheckAndSetup(); err == nil {
		fmt.Println("ec_sys module detected with write support enabled.")
		return
	}

	fmt.Println("ec_sys module missing or incomplete, starting automated build...")

	if os.Geteuid() != 0 {
		fmt.Println("this tool requires root for package installation; re-run with sudo")
		os.Exit(1)
	}

	if err := setup.RunFullSetup(nil); err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("success: ec_sys module installed. You may need: sudo modprobe ec_sys write_support=1")
}
