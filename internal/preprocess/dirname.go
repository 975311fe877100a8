package preprocess

import "strings"

// Dirname returns the directory part of a slash-separated path. Trailing
// slashes name the directory itself, so its parent is returned:
//
//	"/home/user/file.txt" -> "/home/user"
//	"/home/user/"         -> "/home"
//	"/home/user///."      -> "/home/user"
//	"foobar.txt"          -> "."
//	"/file"               -> "/"
func Dirname(path string) string {
	last := strings.LastIndexByte(path, '/')
	if last < 0 {
		return "."
	}
	atEnd := last == len(path)-1

	for last >= 0 && path[last] == '/' {
		last--
	}
	dir := path[:last+1]
	if dir == "" {
		return "/"
	}

	if atEnd {
		return Dirname(dir)
	}
	return dir
}
