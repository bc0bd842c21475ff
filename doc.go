/*

Package sqpack reads SqPack archives: the partitioned, compressed data format
used to ship a certain MMO's game client.

A SqPack database is a directory of repositories, each holding a set of
category/chunk pairs materialized as an ".index"/".index2" file plus one or
more ".datN" data files. A logical path such as "exd/root.exl" is resolved
through the index to a data-file offset, and the bytes at that offset are
decoded according to one of a handful of block layouts (empty, standard,
texture, model).

This package only reads. Writing, patching and repacking archives are out of
scope; see package excel, built on top of this one, for the typed tabular
data store layered over specific files in the archive.

Information sources used while building this:

- The_MoPaQ_Archive_Format and the wider family of fan reverse-engineering
  docs for the underlying container format this one descends from.

- Prior Go and Rust implementations of adjacent archive formats, used here
  only for structure and idiom, not for format details specific to this
  package.

*/
package sqpack
