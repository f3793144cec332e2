// Package configstore is an ordered, multi-valued key/value store used to
// persist project settings.
//
// Keys are slash separated paths such as
// "source_groups/source_group_<id>/compiler_flags/compiler_flag" and each key
// holds one or more string values. The store itself knows nothing about
// source groups; settings components read and write their own keys.
//
// Two file formats are supported and chosen by extension: nested XML (the
// default, used by .srctrlprj files) and TOML (.toml). XML keeps element order
// on load. TOML tables are unordered, so keys are loaded in sorted order.
package configstore
