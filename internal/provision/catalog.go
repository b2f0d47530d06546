package provision

import (
	"fmt"
	"os"
	"strings"
)

// JenkinsSecretsFile is where the CI server writes its initial admin
// credential on first boot.
const JenkinsSecretsFile = "/var/lib/jenkins/secrets/initialAdminPassword"

func aptInstall(pkgs ...string) []Command {
	return []Command{
		{Program: "sudo", Args: []string{"apt-get", "update", "-y"}},
		{Program: "sudo", Args: append([]string{"apt-get", "install", "-y"}, pkgs...)},
	}
}

// DefaultCatalog is the ordered tool catalog for a pipeline host. Order is
// dependency-respecting: the compiler toolchain precedes the build tool,
// the container engine precedes image builds, the CI server follows the
// build tools it drives, and the metrics pair comes last because only the
// observability bootstrap consumes it.
func DefaultCatalog() []ToolSpec {
	return []ToolSpec{
		{
			Name:    "jdk",
			Version: "17",
			Check:   Command{Program: "javac", Args: []string{"-version"}},
			Install: aptInstall("openjdk-17-jdk"),
			Verify:  Command{Program: "javac", Args: []string{"-version"}},
		},
		{
			Name:    "maven",
			Version: "3.9",
			Check:   Command{Program: "mvn", Args: []string{"-version"}},
			Install: aptInstall("maven"),
			Verify:  Command{Program: "mvn", Args: []string{"-version"}},
		},
		{
			Name:    "docker",
			Version: "",
			Check:   Command{Program: "docker", Args: []string{"--version"}},
			Install: append(aptInstall("docker.io"),
				Command{Program: "sudo", Args: []string{"systemctl", "enable", "--now", "docker"}},
				Command{Program: "sudo", Args: []string{"usermod", "-aG", "docker", currentUser()}},
			),
			Verify: Command{Program: "docker", Args: []string{"--version"}},
		},
		{
			Name:    "ansible",
			Version: "",
			Check:   Command{Program: "ansible", Args: []string{"--version"}},
			Install: aptInstall("ansible"),
			Verify:  Command{Program: "ansible", Args: []string{"--version"}},
		},
		{
			Name:    "jenkins",
			Version: "",
			Check:   Command{Program: "systemctl", Args: []string{"is-active", "jenkins"}},
			Install: append(aptInstall("jenkins"),
				Command{Program: "sudo", Args: []string{"systemctl", "enable", "--now", "jenkins"}},
			),
			Verify: Command{Program: "systemctl", Args: []string{"is-active", "jenkins"}},
		},
		{
			Name:    "prometheus",
			Version: "",
			Check:   Command{Program: "systemctl", Args: []string{"is-active", "prometheus"}},
			Install: append(aptInstall("prometheus"),
				Command{Program: "sudo", Args: []string{"systemctl", "enable", "--now", "prometheus"}},
			),
			Verify: Command{Program: "systemctl", Args: []string{"is-active", "prometheus"}},
		},
		{
			Name:    "grafana",
			Version: "",
			Check:   Command{Program: "systemctl", Args: []string{"is-active", "grafana-server"}},
			Install: append(aptInstall("grafana"),
				Command{Program: "sudo", Args: []string{"systemctl", "enable", "--now", "grafana-server"}},
			),
			Verify: Command{Program: "systemctl", Args: []string{"is-active", "grafana-server"}},
		},
	}
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "ubuntu"
}

// InitialAdminPassword reads the CI server's first-boot admin credential
// from its local secrets file.
func InitialAdminPassword(path string) (string, error) {
	if path == "" {
		path = JenkinsSecretsFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read CI server secrets file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("CI server secrets file %s is empty", path)
	}
	return secret, nil
}
