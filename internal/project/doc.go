// Package project ties settings, source groups and the index together.
//
// A Project is loaded from its settings file and lands in one of the
// states NotLoaded, Empty, Loaded, Outdated, OutVersioned, SettingsUpdated
// or NeedsMigration. Refresh reconciles the configured groups with what the
// index recorded on the previous run:
//
//	p := project.New("demo.srctrlprj", app, project.Options{Logger: logger})
//	if err := p.Load(ctx); err != nil {
//	    return err
//	}
//	res, err := p.Refresh(ctx, project.RefreshOptions{Mode: project.RefreshUpdatedFiles})
//
// Groups are prepared concurrently. A group that fails validation or
// preparation is reported in RefreshInfo.Failures and its files are left
// untouched; the other groups proceed.
//
// A stored file is stale when its content changed, when the settings of its
// group changed, when no enabled group lists it anymore or when it
// references a stale file. Referenced files that only cleared files pulled
// in are cleared with them.
package project
