// Package watch keeps a project index current while files change.
//
// A Watcher observes the directory of the project file and the directories
// of every source group with fsnotify. Events are folded per path and
// processed once no new event arrived for the debounce period. A batch
// triggers a forced refresh when it touches the project file or a file some
// enabled group owns; the databases and the dependency cache written by the
// project itself are never reported.
//
//	w := watch.New(p, &watch.Config{Logger: logger})
//	err := w.Run(ctx)
package watch
