package usecases

import (
	"errors"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
)

// ErrSurfaceBusy is returned when a second container tries to take the surface.
var ErrSurfaceBusy = errors.New("map surface already mounted by another container")

// ErrContainerDetached is returned when the container is not ready to render into.
var ErrContainerDetached = errors.New("map container not attached")

// MapView ties the surface to the synchronizers that draw on it. It owns the
// attach and detach ordering: synchronizers bind after mount and tear down their
// own layers and markers before the surface unmounts.
type MapView struct {
	Surface  *GeoSurface
	Routes   *RouteLayerSync
	Stations *StationLayerSync
	Resolver *ReachabilityResolver
}

// Attach mounts the surface in target and binds every synchronizer to it.
func (v *MapView) Attach(target ports.RenderTarget) (SurfaceHandle, error) {
	if target == nil || !target.Attached() {
		return "", ErrContainerDetached
	}
	h, created := v.Surface.Mount(target)
	if !created {
		if h != "" {
			return h, nil
		}
		return "", ErrSurfaceBusy
	}

	v.Routes.Attach(h)
	if err := v.Stations.Attach(h); err != nil {
		v.Surface.Unmount(h)
		return "", err
	}
	v.Resolver.AttachSurface(h)
	return h, nil
}

// Dispatch forwards a renderer event for h.
func (v *MapView) Dispatch(h SurfaceHandle, ev domain.InteractionEvent) {
	v.Surface.Dispatch(h, ev)
}

// Detach tears down the synchronizers, then unmounts. Safe to call repeatedly.
func (v *MapView) Detach(h SurfaceHandle) {
	if !v.Surface.Mounted(h) {
		return
	}
	v.Resolver.DetachSurface()
	v.Stations.Detach()
	v.Routes.Detach()
	v.Surface.Unmount(h)
}
