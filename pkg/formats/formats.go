// Package formats reads Ragnarok Online sprite files and writes extruded
// meshes as Wavefront OBJ.
package formats
