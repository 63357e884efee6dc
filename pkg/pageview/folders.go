package pageview

import (
	"sort"
	"strings"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
)

// FolderGroup is a display-only grouping of records whose keys share the
// same first '/'-delimited path segment. Virtual folders are not a storage
// construct; grouping is applied after page slicing and never feeds back
// into pagination arithmetic.
type FolderGroup struct {
	Name    string             `json:"name"`
	Records []dto.ObjectRecord `json:"records"`
}

// GroupByFolder organizes one display page into virtual folders and root
// files. Folders come before files at the same level, both sorted
// lexicographically by name.
func GroupByFolder(records []dto.ObjectRecord) ([]FolderGroup, []dto.ObjectRecord) {
	byFolder := make(map[string][]dto.ObjectRecord)
	var rootFiles []dto.ObjectRecord

	for _, rec := range records {
		if idx := strings.Index(rec.Key, "/"); idx >= 0 {
			folder := rec.Key[:idx]
			byFolder[folder] = append(byFolder[folder], rec)
		} else {
			rootFiles = append(rootFiles, rec)
		}
	}

	folders := make([]FolderGroup, 0, len(byFolder))
	for name, recs := range byFolder {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
		folders = append(folders, FolderGroup{Name: name, Records: recs})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })

	sort.Slice(rootFiles, func(i, j int) bool { return rootFiles[i].Key < rootFiles[j].Key })
	return folders, rootFiles
}
