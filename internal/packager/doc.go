// Package packager assembles artifacts from completed install trees.
//
// For every requested target it checks that the artifact's subprojects and
// their runtime dependencies are complete, classifies each install tree
// into components with the fileset rules, stages the claimed files under
// `<out>/<artifact>_<component>_<target>/` together with a sorted
// artifact_manifest.txt, and optionally writes a compressed archive plus a
// digest file next to it. Target-neutral artifacts are packaged once under
// the target name `generic`.
package packager
