/*
Package foxml reads the FOXML envelope Fedora 3 keeps for every object in its
object store.

An envelope has the object's PID, a list of object properties (the lifecycle
state, label, owner, and dates), and an ordered list of datastreams. Each
datastream has one or more versions. Only the last version of a datastream is
live; earlier versions are kept for history. A version either holds its
content inline, as XML inside an xmlContent element, or names a file in the
datastream store with a contentLocation element.

	<foxml:digitalObject PID="demo:123">
	  <foxml:objectProperties>
	    <foxml:property NAME="info:fedora/fedora-system:def/model#state" VALUE="Active"/>
	  </foxml:objectProperties>
	  <foxml:datastream ID="MODS" CONTROL_GROUP="M">
	    <foxml:datastreamVersion ID="MODS.0" MIMETYPE="text/xml">
	      <foxml:contentLocation TYPE="INTERNAL_ID" REF="demo:123+MODS+MODS.0"/>
	    </foxml:datastreamVersion>
	  </foxml:datastream>
	</foxml:digitalObject>

Elements are matched by local name only, so documents using a default
namespace or a different prefix read the same.
*/
package foxml
