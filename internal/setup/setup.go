// Package setup builds and installs the ec_sys kernel module that the EC
// transport's ACPI debugfs backend depends on. It is independent of the
// register-level rework elsewhere in this module: ec_sys either exposes
// /sys/kernel/debug/ec/ec0/io with write support or it doesn't, regardless
// of which registers get read or written through it afterward.
package setup

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CheckAndSetup ensures the ec_sys module is loaded with write support. If
// it's loaded but read-only, it tries a reload with write_support=1
// before giving up. Returns an error describing what's missing so the
// caller can decide whether to offer RunFullSetup.
func CheckAndSetup() error {
	if isModuleLoaded("ec_sys") {
		if checkWriteSupport() {
			return nil
		}
		_ = exec.Command("sudo", "modprobe", "-r", "ec_sys").Run()
		_ = exec.Command("sudo", "modprobe", "ec_sys", "write_support=1").Run()

		if checkWriteSupport() {
			return nil
		}
		return fmt.Errorf("setup: ec_sys loaded but write support refused")
	}

	if err := exec.Command("sudo", "modprobe", "ec_sys", "write_support=1").Run(); err == nil {
		if isModuleLoaded("ec_sys") && checkWriteSupport() {
			return nil
		}
	}

	return fmt.Errorf("setup: ec_sys module missing or failed to load")
}

// RunFullSetup builds ec_sys from kernel source and installs it, emitting
// progress lines to progressChan (or stdout if nil). Requires root.
func RunFullSetup(progressChan chan<- string) error {
	log := func(format string, a ...interface{}) {
		if progressChan != nil {
			progressChan <- fmt.Sprintf(format, a...)
		} else {
			fmt.Printf(format+"\n", a...)
		}
	}

	if os.Geteuid() != 0 {
		return fmt.Errorf("setup: requires root privileges (run with sudo)")
	}

	log("Starting automated build of ec_sys module...")

	runCmd := func(cmd *exec.Cmd) error {
		log("Running: %s %s", filepath.Base(cmd.Path), strings.Join(cmd.Args[1:], " "))

		stdout, _ := cmd.StdoutPipe()
		cmd.Stderr = cmd.Stdout

		if err := cmd.Start(); err != nil {
			return fmt.Errorf("setup: start %s: %w", cmd.Path, err)
		}

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			log("%s", scanner.Text())
		}

		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("setup: command failed: %w", err)
		}
		return nil
	}

	run := func(name string, args ...string) error {
		return runCmd(exec.Command(name, args...))
	}

	installDeps := func() error {
		if _, err := exec.LookPath("dnf"); err == nil {
			log("Detected dnf (Fedora/RHEL)...")
			return run("sudo", "dnf", "install", "-y", "dnf-utils", "rpmdevtools", "ncurses-devel", "pesign", "elfutils-libelf-devel", "openssl-devel", "bison", "flex", fmt.Sprintf("kernel-devel-%s", unameR()))
		}
		if _, err := exec.LookPath("apt-get"); err == nil {
			log("Detected apt (Ubuntu/Debian)...")
			if err := run("sudo", "apt-get", "update"); err != nil {
				return err
			}
			return run("sudo", "apt-get", "install", "-y", "build-essential", "libncurses-dev", "bison", "flex", "libssl-dev", "libelf-dev", fmt.Sprintf("linux-headers-%s", unameR()))
		}
		return fmt.Errorf("setup: could not find a supported package manager (dnf or apt)")
	}

	log("1/13 Installing build tools...")
	if err := installDeps(); err != nil {
		return err
	}

	if _, err := exec.LookPath("apt-get"); err == nil {
		return runFullSetupDebian(log, runCmd)
	}

	log("2/13 Creating temporary directory...")
	workDir, err := os.MkdirTemp("", "ec_sys_build")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)
	log("Working in %s", workDir)

	log("3/13 Setting up RPM build tree...")
	rpmbuildDir := filepath.Join(workDir, "rpmbuild")
	for _, dir := range []string{"BUILD", "RPMS", "SOURCES", "SPECS", "SRPMS"} {
		if err := os.MkdirAll(filepath.Join(rpmbuildDir, dir), 0755); err != nil {
			return err
		}
	}

	log("4/13 Downloading kernel source...")
	if _, err := exec.LookPath("dnf"); err == nil {
		_ = run("dnf", "config-manager", "--set-enabled", "fedora-source", "updates-source")

		cmd := exec.Command("dnf", "download", "--source", fmt.Sprintf("kernel-%s", unameR()))
		cmd.Dir = workDir
		if err := runCmd(cmd); err != nil {
			return fmt.Errorf("setup: download kernel source: %w", err)
		}
	} else {
		return fmt.Errorf("setup: dnf not found, automated kernel source download only supported on Fedora/RHEL")
	}

	files, _ := os.ReadDir(workDir)
	var srcRpm string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "kernel-") && strings.HasSuffix(f.Name(), ".src.rpm") {
			srcRpm = filepath.Join(workDir, f.Name())
			break
		}
	}
	if srcRpm == "" {
		return fmt.Errorf("setup: failed to find downloaded src.rpm")
	}

	log("5/13 Installing build dependencies...")
	if err := run("dnf", "builddep", "-y", srcRpm); err != nil {
		return err
	}

	log("6/13 Installing source RPM...")
	if err := run("rpm", "-i", fmt.Sprintf("--define=_topdir %s", rpmbuildDir), srcRpm); err != nil {
		return err
	}

	log("7/13 Preparing kernel source tree...")
	specsDir := filepath.Join(rpmbuildDir, "SPECS")
	cmd := exec.Command("rpmbuild", "-bp", fmt.Sprintf("--define=_topdir %s", rpmbuildDir), fmt.Sprintf("--target=%s", unameM()), "kernel.spec")
	cmd.Dir = specsDir
	if err := runCmd(cmd); err != nil {
		return fmt.Errorf("setup: prepare kernel source: %w", err)
	}

	log("8/13 Locating build directory...")
	buildRoot := filepath.Join(rpmbuildDir, "BUILD")
	var kernelBuildDir string
	_ = filepath.Walk(buildRoot, func(path string, info os.FileInfo, err error) error {
		if kernelBuildDir != "" {
			return filepath.SkipDir
		}
		if info.IsDir() && strings.HasPrefix(info.Name(), "linux-") {
			if _, err := os.Stat(filepath.Join(path, "Makefile")); err == nil {
				kernelBuildDir = path
				return filepath.SkipDir
			}
		}
		return nil
	})

	if kernelBuildDir == "" {
		return fmt.Errorf("setup: could not find kernel build directory")
	}

	log("9/13 Patching Makefile...")
	fullVersion := unameR()
	parts := strings.SplitN(fullVersion, "-", 2)
	if len(parts) < 2 {
		return fmt.Errorf("setup: unexpected kernel version format: %s", fullVersion)
	}
	extraVersion := "-" + parts[1]

	makefile := filepath.Join(kernelBuildDir, "Makefile")
	replaceInFile(makefile, fmt.Sprintf("EXTRAVERSION = %s", extraVersion))

	log("10/13 Configuring kernel...")
	runInDir := func(dir, name string, args ...string) error {
		cmd := exec.Command(name, args...)
		cmd.Dir = dir
		return runCmd(cmd)
	}

	if err := runInDir(kernelBuildDir, "cp", fmt.Sprintf("/boot/config-%s", unameR()), ".config"); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(kernelBuildDir, ".config"), os.O_APPEND|os.O_WRONLY, 0644)
	if err == nil {
		if _, err := f.WriteString("\nCONFIG_ACPI_EC_DEBUGFS=m\n"); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}

	log("11/13 Preparing build...")
	if err := runInDir(kernelBuildDir, "make", "modules_prepare"); err != nil {
		return err
	}

	symvers := fmt.Sprintf("/usr/src/kernels/%s/Module.symvers", unameR())
	if _, err := os.Stat(symvers); err == nil {
		if err := runInDir(kernelBuildDir, "cp", symvers, "."); err != nil {
			return err
		}
	}

	log("12/13 Building module (this may take a while)...")
	cmdBuild := exec.Command("make", "M=drivers/acpi", "modules")
	cmdBuild.Dir = kernelBuildDir
	cmdBuild.Env = append(os.Environ(), "KBUILD_MODPOST_WARN=1")
	if err := runCmd(cmdBuild); err != nil {
		return fmt.Errorf("setup: build module: %w", err)
	}

	log("13/13 Installing module...")
	koFile := filepath.Join(kernelBuildDir, "drivers", "acpi", "ec_sys.ko")
	if _, err := os.Stat(koFile); err == nil {
		destDir := fmt.Sprintf("/lib/modules/%s/extra", unameR())
		if err := run("mkdir", "-p", destDir); err != nil {
			return err
		}
		if err := run("cp", koFile, filepath.Join(destDir, "ec_sys.ko")); err != nil {
			return err
		}
		if err := run("depmod", "-a"); err != nil {
			return err
		}
		log("Success! ec_sys.ko installed.")
		return nil
	}

	return fmt.Errorf("setup: ec_sys.ko not found after build")
}

// runFullSetupDebian handles the simpler Debian/Ubuntu path: rebuild
// ec_sys.c against the running kernel's headers rather than unpacking a
// full kernel source tree.
func runFullSetupDebian(log func(string, ...interface{}), runCmd func(*exec.Cmd) error) error {
	log("Starting Debian/Ubuntu build for ec_sys module...")

	workDir, err := os.MkdirTemp("", "ec_sys_debian")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	headerDir := fmt.Sprintf("/lib/modules/%s/build", unameR())
	if _, err := os.Stat(headerDir); os.IsNotExist(err) {
		return fmt.Errorf("setup: kernel headers not found, run: sudo apt install linux-headers-%s", unameR())
	}

	log("Preparing source...")
	sourceURL := fmt.Sprintf("https://raw.githubusercontent.com/torvalds/linux/refs/tags/v%s/drivers/acpi/ec_sys.c", strings.Split(unameR(), "-")[0])

	log("Downloading ec_sys.c from upstream...")
	if err := runCmd(exec.Command("curl", "-L", sourceURL, "-o", filepath.Join(workDir, "ec_sys.c"))); err != nil {
		return fmt.Errorf("setup: download ec_sys.c: %w", err)
	}

	makefileContent := fmt.Sprintf("obj-m := ec_sys.o\nall:\n\tmake -C %s M=$(PWD) modules\n", headerDir)
	if err := os.WriteFile(filepath.Join(workDir, "Makefile"), []byte(makefileContent), 0644); err != nil {
		return err
	}

	log("Building module...")
	buildCmd := exec.Command("make")
	buildCmd.Dir = workDir
	if err := runCmd(buildCmd); err != nil {
		return fmt.Errorf("setup: build module: %w", err)
	}

	log("Installing module...")
	koFile := filepath.Join(workDir, "ec_sys.ko")
	destDir := fmt.Sprintf("/lib/modules/%s/extra", unameR())
	if err := exec.Command("sudo", "mkdir", "-p", destDir).Run(); err != nil {
		return err
	}
	if err := exec.Command("sudo", "cp", koFile, filepath.Join(destDir, "ec_sys.ko")).Run(); err != nil {
		return err
	}
	if err := exec.Command("sudo", "depmod", "-a").Run(); err != nil {
		return err
	}
	if err := exec.Command("sudo", "modprobe", "ec_sys", "write_support=1").Run(); err != nil {
		return err
	}

	log("Success! ec_sys module built and installed.")
	return nil
}

func isModuleLoaded(name string) bool {
	content, err := os.ReadFile("/proc/modules")
	if err != nil {
		return false
	}
	return strings.Contains(string(content), name)
}

func checkWriteSupport() bool {
	content, err := os.ReadFile("/sys/module/ec_sys/parameters/write_support")
	if err != nil {
		return false
	}
	val := strings.TrimSpace(string(content))
	return val == "Y" || val == "1"
}

func unameR() string {
	out, _ := exec.Command("uname", "-r").Output()
	return strings.TrimSpace(string(out))
}

func unameM() string {
	out, _ := exec.Command("uname", "-m").Output()
	return strings.TrimSpace(string(out))
}

// replaceInFile rewrites the line beginning with "EXTRAVERSION =" in path
// to replacement, leaving every other line untouched.
func replaceInFile(path, replacement string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "EXTRAVERSION =") {
			lines[i] = replacement
			break
		}
	}
	_ = os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}
