package tool

import (
	"time"

	"github.com/medisync/medisync/core"
	"github.com/medisync/medisync/internal/util"
)

// Resource is an opaque named/tagged data record tracked by the registry,
// independent of tool execution. AccessedAt is bumped on every successful
// read.
type Resource struct {
	ID         string         `json:"resource_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
	Tags       []string       `json:"tags"`
	CreatedAt  time.Time      `json:"created_at"`
	AccessedAt time.Time      `json:"accessed_at"`
}

// CreateResource stores a new resource under a fresh identifier and returns it.
func (r *Registry) CreateResource(name, resourceType string, data map[string]any, tags []string) Resource {
	now := time.Now().UTC()
	res := Resource{
		ID:         core.NewID(),
		Name:       name,
		Type:       resourceType,
		Data:       data,
		Tags:       util.CloneStrings(tags),
		CreatedAt:  now,
		AccessedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.ID] = res
	r.resourceOrder = append(r.resourceOrder, res.ID)
	r.totalResources++
	r.logger.Info("resource created", "name", name, "type", resourceType, "resource_id", res.ID)
	return res
}

// GetResource returns a resource by identifier. A successful read updates
// the resource's last-accessed timestamp as an observable side effect.
func (r *Registry) GetResource(resourceID string) (Resource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resources[resourceID]
	if !ok {
		return Resource{}, false
	}
	res.AccessedAt = time.Now().UTC()
	r.resources[resourceID] = res
	return res, true
}

// ListResources returns resources matching both filters when supplied;
// an empty filter matches everything for that dimension. Order follows
// creation order.
func (r *Registry) ListResources(resourceType, tag string) []Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Resource
	for _, id := range r.resourceOrder {
		res, ok := r.resources[id]
		if !ok {
			continue
		}
		if resourceType != "" && res.Type != resourceType {
			continue
		}
		if tag != "" && !containsTag(res.Tags, tag) {
			continue
		}
		out = append(out, res)
	}
	return out
}

// DeleteResource removes a resource by identifier. Deleting an unknown
// resource is a no-op that only emits a warning; the return value reports
// whether anything was removed.
func (r *Registry) DeleteResource(resourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[resourceID]; !ok {
		r.logger.Warn("resource not found", "resource_id", resourceID)
		return false
	}
	delete(r.resources, resourceID)
	for i, id := range r.resourceOrder {
		if id == resourceID {
			r.resourceOrder = append(r.resourceOrder[:i:i], r.resourceOrder[i+1:]...)
			break
		}
	}
	r.logger.Info("resource deleted", "resource_id", resourceID)
	return true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
