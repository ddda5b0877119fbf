package software

import "os"

// statFile is the one OS touchpoint in this package, split out so it is
// trivial to see what "checking a kernel source exists" costs: a single
// os.Stat, matching a real OpenCL driver's ClCreateProgramWithSource doing
// nothing more than reading the file before handing it to the compiler.
func statFile(path string) (os.FileInfo, error) {
	return os.Stat(path)
}
