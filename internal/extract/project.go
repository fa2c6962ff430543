package extract

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

type msbuildProject struct {
	PropertyGroups []struct {
		AssemblyName string `xml:"AssemblyName"`
	} `xml:"PropertyGroup"`
}

// assemblyName returns the assembly a project compiles to: the
// <AssemblyName> property when set, else the project file name, else the
// directory name.
func assemblyName(root, projectFile string) (string, error) {
	if projectFile == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", errors.Wrapf(err, "resolve %s", root)
		}
		return filepath.Base(abs), nil
	}

	data, err := os.ReadFile(projectFile)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", projectFile)
	}
	var proj msbuildProject
	if err := xml.Unmarshal(data, &proj); err != nil {
		return "", errors.Wrapf(err, "decode %s", projectFile)
	}
	for _, pg := range proj.PropertyGroups {
		if name := strings.TrimSpace(pg.AssemblyName); name != "" && !strings.Contains(name, "$(") {
			return name, nil
		}
	}
	return strings.TrimSuffix(filepath.Base(projectFile), filepath.Ext(projectFile)), nil
}
