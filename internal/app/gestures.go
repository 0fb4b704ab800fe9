package app

import (
	"context"
	"time"

	"github.com/ayusman/headpad/internal/gesture"
	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/store"
)

// LoadGestures replaces the matcher templates with the gestures stored in
// the database.
func (a *App) LoadGestures() error {
	if a.store == nil {
		return nil
	}
	gestures, err := a.store.Gestures().List()
	if err != nil {
		return err
	}

	templates := make([]*gesture.Template, 0, len(gestures))
	for _, g := range gestures {
		if len(g.Path) == 0 {
			continue
		}
		templates = append(templates, TemplateFromStore(g))
	}
	a.matcher.Replace(templates)

	log.Info("gestures loaded", "count", len(templates))
	return nil
}

// TemplateFromStore converts a stored gesture into a matcher template.
func TemplateFromStore(g *store.Gesture) *gesture.Template {
	path := make([]gesture.PathPoint, len(g.Path))
	for i, p := range g.Path {
		path[i] = gesture.PathPoint{X: p.X, Y: p.Y, Timestamp: p.TimestampMS}
	}
	return &gesture.Template{ID: g.ID, Name: g.Name, Path: path, Tolerance: g.Tolerance}
}

// fireGesture runs the action bound to a matched gesture. The plugin runs
// outside the frame loop.
func (a *App) fireGesture(m gesture.Match) {
	ev := &GestureEvent{Gesture: m.Template.Name, Score: m.Score, Time: time.Now()}
	log.Info("gesture recognized", "gesture", m.Template.Name, "score", m.Score)

	if a.store == nil || a.plugins == nil {
		a.setLastGesture(ev)
		return
	}

	a.actions.Add(1)
	go func() {
		defer a.actions.Done()
		defer a.setLastGesture(ev)

		action, err := a.store.Actions().GetByGestureID(m.Template.ID)
		if err != nil {
			ev.Error = err.Error()
			log.Warn("failed to look up gesture action", "gesture", m.Template.Name, "err", err)
			return
		}
		if action == nil || !action.Enabled {
			return
		}
		ev.Plugin, ev.Action = action.PluginName, action.ActionName

		if _, err := a.plugins.Run(context.Background(), action.PluginName, action.ActionName, m.Template.Name, action.Config); err != nil {
			ev.Error = err.Error()
			log.Warn("gesture action failed", "gesture", m.Template.Name, "plugin", action.PluginName, "err", err)
			return
		}
		log.Info("gesture action executed", "gesture", m.Template.Name, "plugin", action.PluginName, "action", action.ActionName)
	}()
}

func (a *App) setLastGesture(ev *GestureEvent) {
	a.mu.Lock()
	a.lastGesture = ev
	a.mu.Unlock()
}
