package wgimage

// ComputeWorkGroupCount returns how many workgroups of groupW x groupH
// invocations cover an imageW x imageH image. Both counts round up, so
// partial tiles at the right and bottom edges still get a workgroup; the
// kernels bounds-check invocations outside the image.
func ComputeWorkGroupCount(imageW, imageH, groupW, groupH uint32) (nx, ny uint32) {
	nx = (imageW + groupW - 1) / groupW
	ny = (imageH + groupH - 1) / groupH
	return nx, ny
}
