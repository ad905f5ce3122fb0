// policy_common.go - shared code for cleanup policies
package diskmanager

// buildLocationCountMap counts files per location and kind. Images and clips are
// counted separately so one kind never protects the other.
func buildLocationCountMap(files []FileInfo) map[string]map[string]int {
	counts := make(map[string]map[string]int)
	for i := range files {
		key := files[i].Name.LocationKey()
		if _, exists := counts[key]; !exists {
			counts[key] = make(map[string]int)
		}
		counts[key][files[i].Kind]++
	}
	return counts
}

// checkMinFiles reports whether file can be deleted without dropping its location
// below minFiles.
func checkMinFiles(file *FileInfo, counts map[string]map[string]int, minFiles int) bool {
	kinds, ok := counts[file.Name.LocationKey()]
	if !ok {
		return false
	}
	count, ok := kinds[file.Kind]
	if !ok {
		return false
	}
	return count > minFiles
}
