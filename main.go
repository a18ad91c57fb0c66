// Command joplinfs mounts a Joplin SQLite database as a FUSE filesystem.
package main

import "github.com/RyanGreenup/joplin-sqlite-fuse/cmd"

func main() {
	cmd.Execute()
}
