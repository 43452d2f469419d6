package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// userAssetsDir is the per-owner directory whose files are attached to every
// publishing request (letterhead PDF, fonts, logo).
func (ctrl *controller) userAssetsDir(ownerID uint) string {
	return filepath.Join(ctrl.model.Config.Basedir, "assets", "userassets", fmt.Sprintf("user%d", ownerID))
}

// uploadsDir is the root of generated files served under /userassets.
func (ctrl *controller) uploadsDir() string {
	return ctrl.model.Config.UploadDir
}

// uploadsAbsToURL maps an absolute path under the uploads root to its public
// URL.
func (ctrl *controller) uploadsAbsToURL(abs string) (string, error) {
	rel, err := filepath.Rel(ctrl.uploadsDir(), abs)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", errors.New("file not under uploads root")
	}
	return "/userassets/" + filepath.ToSlash(rel), nil
}

// safeJoin joins rel onto root and rejects any path escaping root.
func safeJoin(root, rel string) (string, error) {
	abs := filepath.Join(root, filepath.Clean("/"+rel))
	absRoot, _ := filepath.Abs(root)
	absFile, _ := filepath.Abs(abs)
	if absFile != absRoot && !strings.HasPrefix(absFile, absRoot+string(os.PathSeparator)) {
		return "", errors.New("path escapes base directory")
	}
	return abs, nil
}
