// Package spectral implements distributed spectral Galerkin transforms on
// tensor product grids.
//
// A multidimensional field is represented by its expansion in a tensor
// product of one-dimensional function spaces: Fourier exponentials on
// periodic axes, Chebyshev or Legendre polynomials on bounded ones, and
// composite bases that bake Dirichlet boundary conditions into the
// expansion. Moving between grid values and expansion coefficients is a
// chain of one-dimensional transforms, one per axis, with global data
// redistributions in between so that each transform always sees its axis
// fully in local memory.
//
// # Architecture Overview
//
// The library is organized around a pencil decomposition of the global
// grid:
//
//   - Bases: per-axis quadrature rules, transform kernels and boundary
//     coefficient handling
//   - Pencils: block partitions of the global index space with all-to-all
//     transfers between partner decompositions
//   - Spaces: transform pipelines that chain axis stages and transfers,
//     including boundary splicing, dealiasing and point evaluation
//   - Groups: an in-process process group whose ranks run as goroutines
//     and communicate through channel-backed collectives
//
// # Basic Usage
//
//	g, _ := grid.NewGroup(4)
//	_ = g.Run(ctx, func(ctx context.Context, c *grid.Comm) error {
//	    bx, _ := basis.NewChebyshev(64)
//	    by, _ := basis.NewFourierR2C(64)
//	    T, err := space.NewTensorProduct(c, []basis.Basis{bx, by})
//	    if err != nil {
//	        return err
//	    }
//	    u, uh := T.NewPhysicalArray(), T.NewSpectralArray()
//	    // fill u on T.LocalMesh() ...
//	    if err := T.Forward(u, uh); err != nil {
//	        return err
//	    }
//	    return T.Backward(uh, u)
//	})
//
// # Package Structure
//
//   - core: dense row-major arrays with line and block access
//   - basis: one-dimensional function spaces and their transforms
//   - grid: goroutine-backed process groups and collectives
//   - pencil: block decompositions and redistribution transfers
//   - space: tensor product pipelines, composite spaces, convolution and
//     point evaluation
//   - cmd/spectrun: a demonstration driver for distributed round trips
package spectral
